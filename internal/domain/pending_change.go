package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeStatus represents the state of a pending quantity change
type ChangeStatus string

const (
	ChangeStatusPending   ChangeStatus = "pending"
	ChangeStatusApproved  ChangeStatus = "approved"
	ChangeStatusRejected  ChangeStatus = "rejected"
	ChangeStatusCancelled ChangeStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions
func (s ChangeStatus) Terminal() bool {
	return s != ChangeStatusPending
}

// PendingChange is a proposed quantity mutation awaiting owner approval.
// At most one pending change may exist per (item_type, item_id).
type PendingChange struct {
	ID               string       `json:"id"`
	ProjectID        string       `json:"project_id"`
	ItemType         string       `json:"item_type"`
	ItemID           string       `json:"item_id"`
	ItemName         string       `json:"item_name"`
	OriginalQuantity float64      `json:"original_quantity"`
	NewQuantity      float64      `json:"new_quantity"`
	ChangeReason     string       `json:"change_reason"`
	RequestedBy      string       `json:"requested_by"`
	Status           ChangeStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	ResolvedAt       *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy       string       `json:"resolved_by,omitempty"`
}

// NewPendingChange creates a pending change request
func NewPendingChange(projectID, itemType, itemID, itemName string, originalQty, newQty float64, reason, requestedBy string) *PendingChange {
	return &PendingChange{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		ItemType:         itemType,
		ItemID:           itemID,
		ItemName:         itemName,
		OriginalQuantity: originalQty,
		NewQuantity:      newQty,
		ChangeReason:     reason,
		RequestedBy:      requestedBy,
		Status:           ChangeStatusPending,
		CreatedAt:        time.Now(),
	}
}

// Approve stamps the resolver. The caller applies NewQuantity to the
// underlying item as a separate side effect; the change record itself does
// not mutate it.
func (p *PendingChange) Approve(resolvedBy string) error {
	return p.resolve(ChangeStatusApproved, resolvedBy)
}

// Reject stamps the resolver with no side effect on the underlying item
func (p *PendingChange) Reject(resolvedBy string) error {
	return p.resolve(ChangeStatusRejected, resolvedBy)
}

// Cancel withdraws the request. Only the original requester may cancel,
// and only while still pending.
func (p *PendingChange) Cancel(userID string) error {
	if p.RequestedBy != userID {
		return ErrNotRequester
	}
	return p.resolve(ChangeStatusCancelled, userID)
}

func (p *PendingChange) resolve(status ChangeStatus, by string) error {
	if p.Status.Terminal() {
		return ErrChangeResolved
	}
	now := time.Now()
	p.Status = status
	p.ResolvedAt = &now
	p.ResolvedBy = by
	return nil
}

// Custom errors
var (
	ErrChangeNotFound = NewDomainError("pending change not found")
	ErrChangeResolved = NewDomainError("pending change already resolved")
	ErrChangeInFlight = NewDomainError("a pending change already exists for this item")
	ErrNotRequester   = NewDomainError("only the original requester can cancel")
)
