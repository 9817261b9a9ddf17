package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/siteledger/siteledger/internal/domain"
)

// PostgresTaskRepository implements TaskRepository using PostgreSQL
type PostgresTaskRepository struct {
	db *sql.DB
}

// NewPostgresTaskRepository creates a new task repository
func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

// ListByProject retrieves all tasks for a project
func (r *PostgresTaskRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, status, priority, phase, assigned_to, due_date, created_at, checklist
		FROM tasks
		WHERE project_id = $1
		ORDER BY due_date, created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		var t domain.Task
		var assignedTo sql.NullString
		var checklistJSON []byte
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &t.Phase, &assignedTo, &t.DueDate, &t.CreatedAt, &checklistJSON); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if assignedTo.Valid {
			t.AssignedTo = assignedTo.String
		}
		if len(checklistJSON) > 0 {
			if err := json.Unmarshal(checklistJSON, &t.Checklist); err != nil {
				return nil, fmt.Errorf("failed to unmarshal checklist: %w", err)
			}
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// InsertBatch inserts the tasks inside one transaction. On failure the
// transaction rolls back and none are inserted.
func (r *PostgresTaskRepository) InsertBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, project_id, title, status, priority, phase, assigned_to, due_date, created_at, checklist)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		checklistJSON, err := marshalChecklist(t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.ProjectID, t.Title, string(t.Status), string(t.Priority),
			t.Phase, nullable(t.AssignedTo), t.DueDate, t.CreatedAt, checklistJSON); err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// Update updates an existing task
func (r *PostgresTaskRepository) Update(ctx context.Context, t *domain.Task) error {
	checklistJSON, err := marshalChecklist(t)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, status = $3, priority = $4, phase = $5, assigned_to = $6, due_date = $7, checklist = $8
		WHERE id = $1
	`, t.ID, t.Title, string(t.Status), string(t.Priority), t.Phase, nullable(t.AssignedTo), t.DueDate, checklistJSON)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %s not found", t.ID)
	}
	return nil
}

func marshalChecklist(t *domain.Task) ([]byte, error) {
	if len(t.Checklist) == 0 {
		return nil, nil
	}
	checklistJSON, err := json.Marshal(t.Checklist)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checklist: %w", err)
	}
	return checklistJSON, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
