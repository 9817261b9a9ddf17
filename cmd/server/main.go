package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/siteledger/siteledger/internal/adapter/ai"
	"github.com/siteledger/siteledger/internal/adapter/cache"
	adapterhttp "github.com/siteledger/siteledger/internal/adapter/http"
	"github.com/siteledger/siteledger/internal/adapter/notification"
	"github.com/siteledger/siteledger/internal/adapter/persistence"
	"github.com/siteledger/siteledger/internal/adapter/weather"
	"github.com/siteledger/siteledger/internal/config"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/invite"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/service/token"
	"github.com/siteledger/siteledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "siteledger",
	})
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", err, nil)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error(ctx, "failed to reach database", err, nil)
		os.Exit(1)
	}

	store := persistence.NewPostgresStore(db)
	citations := persistence.NewPostgresCitationRepository(db)
	tasks := persistence.NewPostgresTaskRepository(db)
	changes := persistence.NewPostgresPendingChangeRepository(db)

	feed, err := persistence.NewChangeListener(cfg.Database.URL, log)
	if err != nil {
		log.Error(ctx, "failed to start change listener", err, nil)
		os.Exit(1)
	}
	defer feed.Close()

	snapshotCache, err := cache.NewRedisSnapshotCache(cfg.Redis.URL, cfg.Redis.SnapshotTTL)
	if err != nil {
		// The cache is a fallback; run without it rather than refuse to start.
		log.Warn(ctx, "redis cache unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		snapshotCache = nil
	}

	weatherClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout)
	emailService := notification.NewEmailService(notification.EmailConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, log)

	var analysis ports.AnalysisService
	if cfg.Analysis.MockMode {
		analysis = ai.NewMockAnalysisService(500*time.Millisecond, false)
	} else {
		analysis = ai.NewInsightAdapter(cfg.Analysis.BaseURL, cfg.Analysis.APIKey, cfg.Analysis.Timeout)
	}

	synthesizer := usecase.NewSynthesizer(citations, weatherClient, log)
	scheduler := usecase.NewPhaseScheduler(tasks, log)
	coordinator := usecase.NewChangeCoordinator(changes, emailService, store, log)
	projects := usecase.NewProjectUseCase(store, citations, tasks, cacheOrNil(snapshotCache), feed,
		synthesizer, scheduler, coordinator, analysis, log)

	tokens := token.NewService(cfg.Security.TokenSecret, cfg.Security.TokenTTL)
	invites := invite.NewService(citations, emailService, log)
	streamer := adapterhttp.NewStreamer(feed, log)

	server := adapterhttp.NewServer(adapterhttp.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, projects, coordinator, tokens, invites, streamer, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error(ctx, "server stopped", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "graceful shutdown failed", err, nil)
	}
}

// cacheOrNil avoids a typed-nil interface when redis is down
func cacheOrNil(c *cache.RedisSnapshotCache) ports.SnapshotCache {
	if c == nil {
		return nil
	}
	return c
}
