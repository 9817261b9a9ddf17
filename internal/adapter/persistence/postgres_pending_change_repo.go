package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/siteledger/siteledger/internal/domain"
)

// uniqueViolation is the postgres error code raised by the partial unique
// index on pending (item_type, item_id) pairs.
const uniqueViolation = "23505"

// PostgresPendingChangeRepository implements PendingChangeRepository. The
// single-flight invariant lives in the schema: a partial unique index over
// (project_id, item_type, item_id) WHERE status = 'pending'.
type PostgresPendingChangeRepository struct {
	db *sql.DB
}

// NewPostgresPendingChangeRepository creates a new pending change repository
func NewPostgresPendingChangeRepository(db *sql.DB) *PostgresPendingChangeRepository {
	return &PostgresPendingChangeRepository{db: db}
}

// Create saves a new pending change
func (r *PostgresPendingChangeRepository) Create(ctx context.Context, change *domain.PendingChange) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_changes (id, project_id, item_type, item_id, item_name,
			original_quantity, new_quantity, change_reason, requested_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, change.ID, change.ProjectID, change.ItemType, change.ItemID, change.ItemName,
		change.OriginalQuantity, change.NewQuantity, change.ChangeReason, change.RequestedBy,
		string(change.Status), change.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return domain.ErrChangeInFlight
		}
		return fmt.Errorf("failed to create pending change: %w", err)
	}
	return nil
}

// FindByID retrieves a pending change by its id
func (r *PostgresPendingChangeRepository) FindByID(ctx context.Context, id string) (*domain.PendingChange, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, item_type, item_id, item_name, original_quantity,
			new_quantity, change_reason, requested_by, status, created_at, resolved_at, resolved_by
		FROM pending_changes
		WHERE id = $1
	`, id)
	return scanChange(row)
}

// ListByProject retrieves changes for a project, newest first
func (r *PostgresPendingChangeRepository) ListByProject(ctx context.Context, projectID string, pendingOnly bool) ([]*domain.PendingChange, error) {
	query := `
		SELECT id, project_id, item_type, item_id, item_name, original_quantity,
			new_quantity, change_reason, requested_by, status, created_at, resolved_at, resolved_by
		FROM pending_changes
		WHERE project_id = $1`
	if pendingOnly {
		query += ` AND status = 'pending'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []*domain.PendingChange
	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// Update persists a status transition
func (r *PostgresPendingChangeRepository) Update(ctx context.Context, change *domain.PendingChange) error {
	var resolvedAt interface{}
	if change.ResolvedAt != nil {
		resolvedAt = *change.ResolvedAt
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE pending_changes
		SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1
	`, change.ID, string(change.Status), resolvedAt, change.ResolvedBy)
	if err != nil {
		return fmt.Errorf("failed to update pending change: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrChangeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChange(row rowScanner) (*domain.PendingChange, error) {
	var change domain.PendingChange
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString
	err := row.Scan(&change.ID, &change.ProjectID, &change.ItemType, &change.ItemID, &change.ItemName,
		&change.OriginalQuantity, &change.NewQuantity, &change.ChangeReason, &change.RequestedBy,
		&change.Status, &change.CreatedAt, &resolvedAt, &resolvedBy)
	if err == sql.ErrNoRows {
		return nil, domain.ErrChangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending change: %w", err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.Truncate(time.Microsecond)
		change.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		change.ResolvedBy = resolvedBy.String
	}
	return &change, nil
}
