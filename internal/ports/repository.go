package ports

import (
	"context"
	"encoding/json"

	"github.com/siteledger/siteledger/internal/domain"
)

// ProjectStore defines the primary store adapter. One read returns the raw
// citation records plus the related entities synthesis consults.
type ProjectStore interface {
	// ReadProject retrieves the full source snapshot for a project
	ReadProject(ctx context.Context, projectID string) (*domain.ProjectSource, error)
}

// CitationRepository defines per-fact citation persistence. Writes are
// keyed upserts, not whole-collection overwrites, so concurrent sessions
// cannot silently erase each other's facts.
type CitationRepository interface {
	// List retrieves all citations for a project
	List(ctx context.Context, projectID string) ([]*domain.Citation, error)

	// Upsert inserts or replaces the citation in its slot (cite_type, or
	// cite_type plus instance key for multi-instance types)
	Upsert(ctx context.Context, projectID string, c *domain.Citation) error

	// InsertIfAbsent inserts only if the slot is still empty, re-verifying
	// absence at write time. Returns domain.ErrDuplicateKey when a
	// concurrent writer got there first.
	InsertIfAbsent(ctx context.Context, projectID string, c *domain.Citation) error

	// UpdateByID applies an edit to an existing citation
	UpdateByID(ctx context.Context, projectID, id, answer string, value interface{}) error
}

// TaskRepository defines row-level task persistence
type TaskRepository interface {
	// ListByProject retrieves all tasks for a project
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)

	// InsertBatch inserts the tasks atomically; on failure none are inserted
	InsertBatch(ctx context.Context, tasks []*domain.Task) error

	// Update updates an existing task
	Update(ctx context.Context, task *domain.Task) error
}

// PendingChangeRepository defines pending change persistence
type PendingChangeRepository interface {
	// Create saves a new pending change. Returns domain.ErrChangeInFlight
	// when a pending entry already exists for the same (item_type, item_id).
	Create(ctx context.Context, change *domain.PendingChange) error

	// FindByID retrieves a pending change by its id
	FindByID(ctx context.Context, id string) (*domain.PendingChange, error)

	// ListByProject retrieves changes for a project, optionally only pending
	ListByProject(ctx context.Context, projectID string, pendingOnly bool) ([]*domain.PendingChange, error)

	// Update persists a status transition
	Update(ctx context.Context, change *domain.PendingChange) error
}

// OwnerDirectory resolves the notification recipients holding the owner
// role on a project.
type OwnerDirectory interface {
	OwnerEmails(ctx context.Context, projectID string) ([]string, error)
}

// ChangeEventKind classifies a store feed event
type ChangeEventKind string

const (
	ChangeEventInsert ChangeEventKind = "INSERT"
	ChangeEventUpdate ChangeEventKind = "UPDATE"
	ChangeEventDelete ChangeEventKind = "DELETE"
)

// ChangeEvent is one push notification from the store subscription
type ChangeEvent struct {
	Kind      ChangeEventKind `json:"kind"`
	Table     string          `json:"table"`
	ProjectID string          `json:"project_id"`
	RowID     string          `json:"row_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChangeFeed is the subscription primitive of the primary store. Handlers
// run on the consumer's event loop, must not block, and only update the
// in-memory mirror.
type ChangeFeed interface {
	// Subscribe registers a handler for a project's change events and
	// returns an unsubscribe func
	Subscribe(projectID string, handler func(ChangeEvent)) (func(), error)

	// Close stops the feed
	Close() error
}

// SnapshotCache is the secondary cache adapter, consulted only when the
// primary read returns an empty citation set or fails.
type SnapshotCache interface {
	// ReadCitations retrieves the cached citation set for a project
	ReadCitations(ctx context.Context, projectID string) ([]*domain.Citation, error)

	// WriteCitations stores the citation set for a project
	WriteCitations(ctx context.Context, projectID string, citations []*domain.Citation) error
}
