package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siteledger/siteledger/internal/domain"
)

// PostgresStore implements the primary store adapter. One ReadProject
// returns everything a load needs: raw citation records plus the related
// entities the synthesizer consults.
type PostgresStore struct {
	db        *sql.DB
	citations *PostgresCitationRepository
	tasks     *PostgresTaskRepository
}

// NewPostgresStore creates the primary store adapter
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:        db,
		citations: NewPostgresCitationRepository(db),
		tasks:     NewPostgresTaskRepository(db),
	}
}

// ReadProject retrieves the full source snapshot for a project
func (s *PostgresStore) ReadProject(ctx context.Context, projectID string) (*domain.ProjectSource, error) {
	src := &domain.ProjectSource{ProjectID: projectID}

	citations, err := s.citations.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read citations: %w", err)
	}
	for _, c := range citations {
		src.RawRecords = append(src.RawRecords, citationRecord(c))
	}

	if src.Financial, err = s.readFinancial(ctx, projectID); err != nil {
		return nil, err
	}
	if src.Profile, err = s.readProfile(ctx, projectID); err != nil {
		return nil, err
	}
	if src.Tasks, err = s.tasks.ListByProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	if src.Members, err = s.readMembers(ctx, projectID); err != nil {
		return nil, err
	}
	if src.Invitations, err = s.readInvitations(ctx, projectID); err != nil {
		return nil, err
	}
	if src.Contracts, err = s.readContracts(ctx, projectID); err != nil {
		return nil, err
	}
	return src, nil
}

// OwnerEmails resolves the notification recipients holding the owner role
func (s *PostgresStore) OwnerEmails(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM team_members WHERE project_id = $1 AND role = 'owner' AND email <> ''`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// citationRecord round-trips a stored citation into the raw record shape the
// normalizer accepts, so stored and legacy records share one load path.
func citationRecord(c *domain.Citation) domain.RawRecord {
	rec := domain.RawRecord{
		"id":           c.ID,
		"question_key": c.QuestionKey,
		"answer":       c.Answer,
		"timestamp":    c.Timestamp,
	}
	if c.CiteType != "" {
		rec["cite_type"] = string(c.CiteType)
	}
	if c.Value != nil {
		rec["value"] = c.Value
	}
	if len(c.Metadata) > 0 {
		rec["metadata"] = c.Metadata
	}
	if c.Provenance != "" {
		rec["provenance"] = string(c.Provenance)
	}
	return rec
}

func (s *PostgresStore) readFinancial(ctx context.Context, projectID string) (*domain.FinancialSummary, error) {
	var f domain.FinancialSummary
	var targetEnd sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT total, currency, target_end FROM financial_summaries WHERE project_id = $1`, projectID).
		Scan(&f.Total, &f.Currency, &targetEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read financial summary: %w", err)
	}
	if targetEnd.Valid {
		f.TargetEnd = &targetEnd.Time
	}
	return &f, nil
}

func (s *PostgresStore) readProfile(ctx context.Context, projectID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT trade, address FROM project_profiles WHERE project_id = $1`, projectID).
		Scan(&p.Trade, &p.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) readMembers(ctx context.Context, projectID string) ([]*domain.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, name, email FROM team_members WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read team members: %w", err)
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Name, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) readInvitations(ctx context.Context, projectID string) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, role FROM invitations WHERE project_id = $1 AND accepted_at IS NULL`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role); err != nil {
			return nil, err
		}
		invitations = append(invitations, &inv)
	}
	return invitations, rows.Err()
}

func (s *PostgresStore) readContracts(ctx context.Context, projectID string) ([]*domain.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, party, amount, signed_at, created_at FROM contracts WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(&c.ID, &c.Title, &c.Party, &c.Amount, &c.SignedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, &c)
	}
	return contracts, rows.Err()
}
