package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/siteledger/siteledger/internal/domain"
)

// PostgresCitationRepository implements CitationRepository with per-fact
// keyed upserts. The slot key column makes the single-fact-per-type
// invariant a database constraint: empty for single-instance types, the
// member/contract id for multi-instance ones. Concurrent sessions can no
// longer silently erase each other's facts the way a whole-collection
// overwrite would.
type PostgresCitationRepository struct {
	db *sql.DB
}

// NewPostgresCitationRepository creates a new citation repository
func NewPostgresCitationRepository(db *sql.DB) *PostgresCitationRepository {
	return &PostgresCitationRepository{db: db}
}

// List retrieves all citations for a project in insertion order
func (r *PostgresCitationRepository) List(ctx context.Context, projectID string) ([]*domain.Citation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cite_type, question_key, answer, value, metadata, ts, provenance
		FROM citations
		WHERE project_id = $1
		ORDER BY ts, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list citations: %w", err)
	}
	defer rows.Close()

	var citations []*domain.Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

// Upsert inserts or replaces the citation in its slot
func (r *PostgresCitationRepository) Upsert(ctx context.Context, projectID string, c *domain.Citation) error {
	valueJSON, metaJSON, err := encodeCitation(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO citations (project_id, id, cite_type, slot_key, question_key, answer, value, metadata, ts, provenance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id, cite_type, slot_key)
		DO UPDATE SET answer = EXCLUDED.answer, value = EXCLUDED.value,
			metadata = EXCLUDED.metadata, ts = EXCLUDED.ts, provenance = EXCLUDED.provenance
	`, projectID, c.ID, string(c.CiteType), c.InstanceKey(), c.QuestionKey, c.Answer, valueJSON, metaJSON, c.Timestamp, string(c.Provenance))
	if err != nil {
		return fmt.Errorf("failed to upsert citation: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts only when the slot is still empty. The conflict
// target re-verifies absence at write time, which is what guards the
// synthesizer against races with a sibling load.
func (r *PostgresCitationRepository) InsertIfAbsent(ctx context.Context, projectID string, c *domain.Citation) error {
	valueJSON, metaJSON, err := encodeCitation(c)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO citations (project_id, id, cite_type, slot_key, question_key, answer, value, metadata, ts, provenance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id, cite_type, slot_key) DO NOTHING
	`, projectID, c.ID, string(c.CiteType), c.InstanceKey(), c.QuestionKey, c.Answer, valueJSON, metaJSON, c.Timestamp, string(c.Provenance))
	if err != nil {
		return fmt.Errorf("failed to insert citation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

// UpdateByID applies an edit to an existing citation: same id, new
// answer/value, provenance flips to user_input.
func (r *PostgresCitationRepository) UpdateByID(ctx context.Context, projectID, id, answer string, value interface{}) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal citation value: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE citations
		SET answer = $3, value = $4, provenance = $5, ts = NOW()
		WHERE project_id = $1 AND id = $2
	`, projectID, id, answer, valueJSON, string(domain.ProvenanceUserInput))
	if err != nil {
		return fmt.Errorf("failed to update citation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCitationNotFound
	}
	return nil
}

func encodeCitation(c *domain.Citation) (valueJSON, metaJSON []byte, err error) {
	if c.Value != nil {
		if valueJSON, err = json.Marshal(c.Value); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal citation value: %w", err)
		}
	}
	if len(c.Metadata) > 0 {
		if metaJSON, err = json.Marshal(c.Metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal citation metadata: %w", err)
		}
	}
	return valueJSON, metaJSON, nil
}

func scanCitation(rows *sql.Rows) (*domain.Citation, error) {
	var c domain.Citation
	var valueJSON, metaJSON []byte
	if err := rows.Scan(&c.ID, &c.CiteType, &c.QuestionKey, &c.Answer, &valueJSON, &metaJSON, &c.Timestamp, &c.Provenance); err != nil {
		return nil, fmt.Errorf("failed to scan citation: %w", err)
	}
	if len(valueJSON) > 0 {
		if err := json.Unmarshal(valueJSON, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citation value: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citation metadata: %w", err)
		}
	}
	return &c, nil
}
