package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/service/invite"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/service/token"
	"github.com/siteledger/siteledger/internal/usecase"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// Server is the HTTP facade over the reconciliation core
type Server struct {
	server   *http.Server
	log      logger.Logger
	tokens   *token.Service
	sessions *sessionManager
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates the HTTP facade
func NewServer(
	config ServerConfig,
	projects *usecase.ProjectUseCase,
	coordinator *usecase.ChangeCoordinator,
	tokens *token.Service,
	invites *invite.Service,
	streamer *Streamer,
	log logger.Logger,
) *Server {
	s := &Server{
		log:      log,
		tokens:   tokens,
		sessions: newSessionManager(projects),
	}

	factHandler := &FactHandler{projects: projects, sessions: s.sessions, log: log}
	changeHandler := &ChangeHandler{coordinator: coordinator, log: log}
	taskHandler := &TaskHandler{projects: projects, sessions: s.sessions, log: log}
	analysisHandler := &AnalysisHandler{projects: projects, log: log}

	router := mux.NewRouter()
	router.Use(s.correlationMiddleware)
	router.Use(s.recoveryMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	factHandler.RegisterRoutes(api)
	changeHandler.RegisterRoutes(api)
	taskHandler.RegisterRoutes(api)
	analysisHandler.RegisterRoutes(api)
	if invites != nil {
		teamHandler := &TeamHandler{invites: invites, sessions: s.sessions, log: log}
		teamHandler.RegisterRoutes(api)
	}
	if streamer != nil {
		api.HandleFunc("/projects/{id}/events", streamer.ServeProject).Methods(http.MethodGet)
	}

	s.server = &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Start runs the server until the listener fails
func (s *Server) Start() error {
	s.log.Info(context.Background(), "http facade listening", map[string]interface{}{"addr": s.server.Addr})
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.closeAll()
	return s.server.Shutdown(ctx)
}

type actorKeyType string

const actorKey actorKeyType = "actor"

// ActorFrom extracts the authenticated actor from a request context
func ActorFrom(ctx context.Context) (usecase.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(usecase.Actor)
	return actor, ok
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) < 8 || header[:7] != "Bearer " {
			writeError(w, apperror.AuthorizationDenied("missing bearer token"))
			return
		}
		userID, role, err := s.tokens.Verify(header[7:])
		if err != nil {
			writeError(w, apperror.AuthorizationDenied("invalid session token"))
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, usecase.Actor{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get("X-Correlation-ID")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), logger.CorrelationIDKey, cid)
		w.Header().Set("X-Correlation-ID", cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error(r.Context(), "panic in handler", nil, map[string]interface{}{
					"path": r.URL.Path, "panic": rec,
				})
				http.Error(w, `{"code":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// sessionManager caches one project session per project and carries the
// owner-toggled edit-mode flag alongside it.
type sessionManager struct {
	projects *usecase.ProjectUseCase

	mu       sync.Mutex
	sessions map[string]*usecase.ProjectSession
	editMode map[string]bool
}

func newSessionManager(projects *usecase.ProjectUseCase) *sessionManager {
	return &sessionManager{
		projects: projects,
		sessions: make(map[string]*usecase.ProjectSession),
		editMode: make(map[string]bool),
	}
}

// get returns the cached session, loading the project on first use
func (m *sessionManager) get(ctx context.Context, projectID string) (*usecase.ProjectSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[projectID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	// Load outside the lock; the store round-trips are slow.
	session, err := m.projects.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[projectID]; ok {
		session.Close()
		return existing, nil
	}
	m.sessions[projectID] = session
	return session, nil
}

// reload closes the cached session and loads a fresh one
func (m *sessionManager) reload(ctx context.Context, projectID string) (*usecase.ProjectSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[projectID]; ok {
		session.Close()
		delete(m.sessions, projectID)
	}
	m.mu.Unlock()
	return m.get(ctx, projectID)
}

func (m *sessionManager) setEditMode(projectID string, enabled bool) {
	m.mu.Lock()
	m.editMode[projectID] = enabled
	m.mu.Unlock()
}

func (m *sessionManager) editModeFor(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editMode[projectID]
}

func (m *sessionManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Close()
		delete(m.sessions, id)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChangeInFlight), errors.Is(err, domain.ErrChangeResolved):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"code": "CONFLICT", "message": err.Error()})
	case errors.Is(err, domain.ErrNotRequester):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"code": string(apperror.KindAuthorizationDenied), "message": err.Error()})
	case errors.Is(err, domain.ErrChangeNotFound), errors.Is(err, domain.ErrCitationNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"code": "NOT_FOUND", "message": err.Error()})
	default:
		appErr := apperror.MapError(err)
		writeJSON(w, appErr.Status, map[string]interface{}{
			"code":    appErr.Kind,
			"message": appErr.Message,
		})
	}
}
