package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/siteledger/siteledger/internal/config"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// Seeds one demo project with a legacy-shaped citation, a roster, two
// contracts and a financial summary so a first load exercises
// normalization, synthesis and the phase scheduler end to end.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, ServiceName: "siteledger-seed"})
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	projectID := "demo-project"
	targetEnd := time.Now().AddDate(0, 2, 0)

	execs := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO citations (project_id, id, cite_type, slot_key, question_key, answer, provenance)
			VALUES ($1, $2, '', '', 'gfa', '1200', 'legacy_migrated')
			ON CONFLICT DO NOTHING`, []interface{}{projectID, uuid.NewString()}},
		{`INSERT INTO citations (project_id, id, cite_type, slot_key, question_key, answer, provenance)
			VALUES ($1, $2, 'PROJECT_NAME', '', 'project_name', 'Harbor View Renovation', 'user_input')
			ON CONFLICT DO NOTHING`, []interface{}{projectID, uuid.NewString()}},
		{`INSERT INTO citations (project_id, id, cite_type, slot_key, question_key, answer, provenance)
			VALUES ($1, $2, 'TIMELINE', '', 'start_date', $3, 'user_input')
			ON CONFLICT DO NOTHING`, []interface{}{projectID, uuid.NewString(), time.Now().Format("2006-01-02")}},
		{`INSERT INTO project_profiles (project_id, trade, address)
			VALUES ($1, 'interior fit-out', '12 Harbor View Rd')
			ON CONFLICT (project_id) DO NOTHING`, []interface{}{projectID}},
		{`INSERT INTO financial_summaries (project_id, total, currency, target_end)
			VALUES ($1, 250000, 'USD', $2)
			ON CONFLICT (project_id) DO NOTHING`, []interface{}{projectID, targetEnd}},
		{`INSERT INTO team_members (id, project_id, user_id, role, name, email)
			VALUES ('tm-owner', $1, 'user-owner', 'owner', 'Alex Chen', 'owner@example.com')
			ON CONFLICT (id) DO NOTHING`, []interface{}{projectID}},
		{`INSERT INTO team_members (id, project_id, user_id, role, name, email)
			VALUES ('tm-foreman', $1, 'user-foreman', 'foreman', 'Sam Ortiz', 'foreman@example.com')
			ON CONFLICT (id) DO NOTHING`, []interface{}{projectID}},
		{`INSERT INTO contracts (id, project_id, title, party, amount)
			VALUES ('ct-electrical', $1, 'Electrical works', 'Volt & Co', 48000)
			ON CONFLICT (id) DO NOTHING`, []interface{}{projectID}},
		{`INSERT INTO contracts (id, project_id, title, party, amount)
			VALUES ('ct-plumbing', $1, 'Plumbing works', 'FlowRight LLC', 31000)
			ON CONFLICT (id) DO NOTHING`, []interface{}{projectID}},
	}

	for _, e := range execs {
		if _, err := db.ExecContext(ctx, e.query, e.args...); err != nil {
			log.Error(ctx, "seed statement failed", err, nil)
			os.Exit(1)
		}
	}
	log.Info(ctx, "seeded demo project", map[string]interface{}{"project_id": projectID})
}
