package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// Actor is the authenticated caller of a coordinator operation
type Actor struct {
	UserID string
	Role   domain.Role
}

// CreateChangeRequest represents the request to open a quantity change
type CreateChangeRequest struct {
	ProjectID        string  `json:"project_id"`
	ItemType         string  `json:"item_type"`
	ItemID           string  `json:"item_id"`
	ItemName         string  `json:"item_name"`
	OriginalQuantity float64 `json:"original_quantity"`
	NewQuantity      float64 `json:"new_quantity"`
	ChangeReason     string  `json:"change_reason"`
}

// ChangeCoordinator mediates the two-actor approval workflow for sensitive
// quantity changes. Foreman/subcontractor-class roles request, the owner
// resolves. All non-pending states are terminal.
type ChangeCoordinator struct {
	repo     ports.PendingChangeRepository
	notifier ports.NotificationService
	owners   ports.OwnerDirectory
	log      logger.Logger

	// mirror reconciles changes arriving from other sessions, keyed by id.
	mu     sync.Mutex
	mirror map[string]domain.ChangeStatus
}

// NewChangeCoordinator creates a change coordinator
func NewChangeCoordinator(repo ports.PendingChangeRepository, notifier ports.NotificationService, owners ports.OwnerDirectory, log logger.Logger) *ChangeCoordinator {
	return &ChangeCoordinator{
		repo:     repo,
		notifier: notifier,
		owners:   owners,
		log:      log,
		mirror:   make(map[string]domain.ChangeStatus),
	}
}

// Create opens a pending change. It fails when a pending entry already
// exists for the same (item_type, item_id). The owner is notified once, at
// arrival; notification failure never fails the create.
func (c *ChangeCoordinator) Create(ctx context.Context, actor Actor, req CreateChangeRequest) (*domain.PendingChange, error) {
	if !domain.CanRequestChange(actor.Role) {
		return nil, apperror.AuthorizationDenied("role cannot request quantity changes")
	}
	if req.ItemID == "" || req.ItemType == "" {
		return nil, apperror.Validation("item type and id are required")
	}

	change := domain.NewPendingChange(req.ProjectID, req.ItemType, req.ItemID, req.ItemName,
		req.OriginalQuantity, req.NewQuantity, req.ChangeReason, actor.UserID)

	if err := c.repo.Create(ctx, change); err != nil {
		return nil, err
	}
	c.remember(change)
	c.notifyOwner(ctx, change)
	return change, nil
}

// Approve stamps the resolver. The coordinator does not mutate the
// underlying quantity; the caller applies NewQuantity as a separate side
// effect after a successful approve.
func (c *ChangeCoordinator) Approve(ctx context.Context, actor Actor, changeID string) (*domain.PendingChange, error) {
	return c.resolveAsOwner(ctx, actor, changeID, (*domain.PendingChange).Approve)
}

// Reject stamps the resolver with no side effect on the underlying item
func (c *ChangeCoordinator) Reject(ctx context.Context, actor Actor, changeID string) (*domain.PendingChange, error) {
	return c.resolveAsOwner(ctx, actor, changeID, (*domain.PendingChange).Reject)
}

// Cancel withdraws a still-pending request. Only the original requester may
// cancel.
func (c *ChangeCoordinator) Cancel(ctx context.Context, actor Actor, changeID string) (*domain.PendingChange, error) {
	change, err := c.repo.FindByID(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if err := change.Cancel(actor.UserID); err != nil {
		return nil, err
	}
	if err := c.repo.Update(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}
	c.remember(change)
	return change, nil
}

// ListPending retrieves the open changes for a project
func (c *ChangeCoordinator) ListPending(ctx context.Context, projectID string) ([]*domain.PendingChange, error) {
	return c.repo.ListByProject(ctx, projectID, true)
}

// ApplyEvent reconciles a change arriving from another session by
// upsert-on-id. It returns true when the event is a newly-arrived pending
// change, which is the one moment the owner should be surfaced a "new
// pending changes" notification; repeated events for the same change never
// report true again.
func (c *ChangeCoordinator) ApplyEvent(change *domain.PendingChange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, seen := c.mirror[change.ID]
	c.mirror[change.ID] = change.Status
	if change.Status != domain.ChangeStatusPending {
		return false
	}
	return !seen || prev != domain.ChangeStatusPending
}

func (c *ChangeCoordinator) resolveAsOwner(ctx context.Context, actor Actor, changeID string, transition func(*domain.PendingChange, string) error) (*domain.PendingChange, error) {
	if actor.Role != domain.RoleOwner {
		return nil, apperror.AuthorizationDenied("only the owner can resolve pending changes")
	}
	change, err := c.repo.FindByID(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if err := transition(change, actor.UserID); err != nil {
		return nil, err
	}
	if err := c.repo.Update(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}
	c.remember(change)
	return change, nil
}

func (c *ChangeCoordinator) remember(change *domain.PendingChange) {
	c.mu.Lock()
	c.mirror[change.ID] = change.Status
	c.mu.Unlock()
}

func (c *ChangeCoordinator) notifyOwner(ctx context.Context, change *domain.PendingChange) {
	if c.notifier == nil || c.owners == nil {
		return
	}
	recipients, err := c.owners.OwnerEmails(ctx, change.ProjectID)
	if err != nil || len(recipients) == 0 {
		if err != nil {
			c.log.Warn(ctx, "could not resolve owner recipients", map[string]interface{}{
				"project_id": change.ProjectID, "error": err.Error(),
			})
		}
		return
	}
	results, err := c.notifier.Send(ctx, recipients, map[string]string{
		"template":  "pending_change_created",
		"item_name": change.ItemName,
		"requested": fmt.Sprintf("%.2f", change.NewQuantity),
		"original":  fmt.Sprintf("%.2f", change.OriginalQuantity),
		"reason":    change.ChangeReason,
	})
	if err != nil {
		c.log.Warn(ctx, "owner notification degraded", map[string]interface{}{
			"change_id": change.ID, "error": err.Error(),
		})
		return
	}
	for _, r := range results {
		if !r.Success {
			c.log.Warn(ctx, "owner notification failed for recipient", map[string]interface{}{
				"change_id": change.ID, "recipient": r.Recipient, "error": r.Error,
			})
		}
	}
}
