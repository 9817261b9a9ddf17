package main

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/lib/pq"

	"github.com/siteledger/siteledger/internal/config"
	"github.com/siteledger/siteledger/internal/service/logger"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS citations (
		project_id TEXT NOT NULL,
		id TEXT NOT NULL,
		cite_type TEXT NOT NULL,
		slot_key TEXT NOT NULL DEFAULT '',
		question_key TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL DEFAULT '',
		value JSONB,
		metadata JSONB,
		ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		provenance TEXT NOT NULL DEFAULT 'user_input',
		PRIMARY KEY (project_id, id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_citations_slot
		ON citations (project_id, cite_type, slot_key)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN',
		priority TEXT NOT NULL DEFAULT 'MEDIUM',
		phase TEXT NOT NULL DEFAULT '',
		assigned_to TEXT,
		due_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		checklist JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS ix_tasks_project ON tasks (project_id, due_date)`,

	`CREATE TABLE IF NOT EXISTS pending_changes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL DEFAULT '',
		original_quantity DOUBLE PRECISION NOT NULL,
		new_quantity DOUBLE PRECISION NOT NULL,
		change_reason TEXT NOT NULL DEFAULT '',
		requested_by TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ,
		resolved_by TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_pending_changes_single_flight
		ON pending_changes (project_id, item_type, item_id)
		WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'worker',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'worker',
		accepted_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		party TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		signed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS financial_summaries (
		project_id TEXT PRIMARY KEY,
		total DOUBLE PRECISION NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD',
		target_end TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS project_profiles (
		project_id TEXT PRIMARY KEY,
		trade TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT ''
	)`,

	// Row triggers publish one JSON payload per mutation to the change
	// feed channel the listener subscribes to.
	`CREATE OR REPLACE FUNCTION notify_siteledger_change() RETURNS trigger AS $$
	DECLARE
		row_data RECORD;
		payload JSON;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			row_data := OLD;
		ELSE
			row_data := NEW;
		END IF;
		payload := json_build_object(
			'kind', TG_OP,
			'table', TG_TABLE_NAME,
			'project_id', row_data.project_id,
			'row_id', row_data.id,
			'payload', row_to_json(row_data)
		);
		PERFORM pg_notify('siteledger_changes', payload::text);
		RETURN row_data;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS trg_citations_notify ON citations`,
	`CREATE TRIGGER trg_citations_notify
		AFTER INSERT OR UPDATE OR DELETE ON citations
		FOR EACH ROW EXECUTE FUNCTION notify_siteledger_change()`,

	`DROP TRIGGER IF EXISTS trg_tasks_notify ON tasks`,
	`CREATE TRIGGER trg_tasks_notify
		AFTER INSERT OR UPDATE OR DELETE ON tasks
		FOR EACH ROW EXECUTE FUNCTION notify_siteledger_change()`,

	`DROP TRIGGER IF EXISTS trg_pending_changes_notify ON pending_changes`,
	`CREATE TRIGGER trg_pending_changes_notify
		AFTER INSERT OR UPDATE OR DELETE ON pending_changes
		FOR EACH ROW EXECUTE FUNCTION notify_siteledger_change()`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, ServiceName: "siteledger-migrate"})
	ctx := context.Background()

	if cfg.Database.URL == "" {
		log.Error(ctx, "DATABASE_URL is required", nil, nil)
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error(ctx, "migration statement failed", err, map[string]interface{}{"statement": i})
			os.Exit(1)
		}
	}
	log.Info(ctx, "migrations applied", map[string]interface{}{"statements": len(statements)})
}
