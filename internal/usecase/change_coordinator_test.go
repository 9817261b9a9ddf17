package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/pkg/apperror"
)

type MockPendingChangeRepository struct {
	mock.Mock
}

func (m *MockPendingChangeRepository) Create(ctx context.Context, change *domain.PendingChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockPendingChangeRepository) FindByID(ctx context.Context, id string) (*domain.PendingChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingChange), args.Error(1)
}

func (m *MockPendingChangeRepository) ListByProject(ctx context.Context, projectID string, pendingOnly bool) ([]*domain.PendingChange, error) {
	args := m.Called(ctx, projectID, pendingOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PendingChange), args.Error(1)
}

func (m *MockPendingChangeRepository) Update(ctx context.Context, change *domain.PendingChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Send(ctx context.Context, recipients []string, templateData map[string]string) ([]ports.RecipientResult, error) {
	args := m.Called(ctx, recipients, templateData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.RecipientResult), args.Error(1)
}

type MockOwnerDirectory struct {
	mock.Mock
}

func (m *MockOwnerDirectory) OwnerEmails(ctx context.Context, projectID string) ([]string, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func validChangeRequest() CreateChangeRequest {
	return CreateChangeRequest{
		ProjectID:        "proj-1",
		ItemType:         "material",
		ItemID:           "item-9",
		ItemName:         "Rebar",
		OriginalQuantity: 100,
		NewQuantity:      120,
		ChangeReason:     "waste allowance",
	}
}

func TestChangeCoordinator_Create(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	notifier := new(MockNotificationService)
	owners := new(MockOwnerDirectory)
	c := NewChangeCoordinator(repo, notifier, owners, logger.NewNop())

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.PendingChange")).Return(nil)
	owners.On("OwnerEmails", mock.Anything, "proj-1").Return([]string{"owner@example.com"}, nil)
	notifier.On("Send", mock.Anything, []string{"owner@example.com"}, mock.Anything).
		Return([]ports.RecipientResult{{Recipient: "owner@example.com", Success: true}}, nil)

	change, err := c.Create(context.Background(), Actor{UserID: "user-foreman", Role: domain.RoleForeman}, validChangeRequest())

	assert.NoError(t, err)
	assert.Equal(t, domain.ChangeStatusPending, change.Status)
	assert.Equal(t, "user-foreman", change.RequestedBy)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestChangeCoordinator_CreateRoleDenied(t *testing.T) {
	c := NewChangeCoordinator(new(MockPendingChangeRepository), nil, nil, logger.NewNop())

	for _, role := range []domain.Role{domain.RoleOwner, domain.RoleWorker, domain.RolePublic} {
		_, err := c.Create(context.Background(), Actor{UserID: "u", Role: role}, validChangeRequest())
		assert.Error(t, err, "role %s", role)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthorizationDenied))
	}
}

func TestChangeCoordinator_CreateValidation(t *testing.T) {
	c := NewChangeCoordinator(new(MockPendingChangeRepository), nil, nil, logger.NewNop())

	req := validChangeRequest()
	req.ItemID = ""
	_, err := c.Create(context.Background(), Actor{UserID: "u", Role: domain.RoleForeman}, req)

	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestChangeCoordinator_CreateSingleFlight(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	c := NewChangeCoordinator(repo, nil, nil, logger.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrChangeInFlight)

	_, err := c.Create(context.Background(), Actor{UserID: "user-foreman", Role: domain.RoleForeman}, validChangeRequest())

	assert.ErrorIs(t, err, domain.ErrChangeInFlight)
}

func TestChangeCoordinator_NotificationFailureDoesNotFailCreate(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	notifier := new(MockNotificationService)
	owners := new(MockOwnerDirectory)
	c := NewChangeCoordinator(repo, notifier, owners, logger.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	owners.On("OwnerEmails", mock.Anything, "proj-1").Return([]string{"owner@example.com"}, nil)
	notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	change, err := c.Create(context.Background(), Actor{UserID: "user-foreman", Role: domain.RoleForeman}, validChangeRequest())

	assert.NoError(t, err)
	assert.NotNil(t, change)
}

func TestChangeCoordinator_ApproveOwnerOnly(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	c := NewChangeCoordinator(repo, nil, nil, logger.NewNop())
	pending := domain.NewPendingChange("proj-1", "material", "item-9", "Rebar", 100, 120, "", "user-foreman")

	_, err := c.Approve(context.Background(), Actor{UserID: "user-foreman", Role: domain.RoleForeman}, pending.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorizationDenied))

	repo.On("FindByID", mock.Anything, pending.ID).Return(pending, nil)
	repo.On("Update", mock.Anything, pending).Return(nil)

	resolved, err := c.Approve(context.Background(), Actor{UserID: "user-owner", Role: domain.RoleOwner}, pending.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.ChangeStatusApproved, resolved.Status)
	assert.Equal(t, "user-owner", resolved.ResolvedBy)
}

func TestChangeCoordinator_ResolveAfterTerminal(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	c := NewChangeCoordinator(repo, nil, nil, logger.NewNop())
	change := domain.NewPendingChange("proj-1", "material", "item-9", "Rebar", 100, 120, "", "user-foreman")
	assert.NoError(t, change.Reject("user-owner"))

	repo.On("FindByID", mock.Anything, change.ID).Return(change, nil)

	_, err := c.Approve(context.Background(), Actor{UserID: "user-owner", Role: domain.RoleOwner}, change.ID)

	assert.ErrorIs(t, err, domain.ErrChangeResolved)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChangeCoordinator_CancelRequesterOnly(t *testing.T) {
	repo := new(MockPendingChangeRepository)
	c := NewChangeCoordinator(repo, nil, nil, logger.NewNop())
	change := domain.NewPendingChange("proj-1", "material", "item-9", "Rebar", 100, 120, "", "user-sub")

	repo.On("FindByID", mock.Anything, change.ID).Return(change, nil)

	_, err := c.Cancel(context.Background(), Actor{UserID: "someone-else", Role: domain.RoleSubcontractor}, change.ID)
	assert.ErrorIs(t, err, domain.ErrNotRequester)

	repo.On("Update", mock.Anything, change).Return(nil)
	cancelled, err := c.Cancel(context.Background(), Actor{UserID: "user-sub", Role: domain.RoleSubcontractor}, change.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.ChangeStatusCancelled, cancelled.Status)
}

func TestChangeCoordinator_ApplyEventNotifiesOncePerArrival(t *testing.T) {
	c := NewChangeCoordinator(new(MockPendingChangeRepository), nil, nil, logger.NewNop())
	change := domain.NewPendingChange("proj-1", "material", "item-9", "Rebar", 100, 120, "", "user-foreman")

	assert.True(t, c.ApplyEvent(change), "first arrival of a pending change surfaces a notification")
	assert.False(t, c.ApplyEvent(change), "a repeated event for the same change does not")

	assert.NoError(t, change.Approve("user-owner"))
	assert.False(t, c.ApplyEvent(change), "resolutions never notify")

	// A brand new pending change notifies again.
	next := domain.NewPendingChange("proj-1", "material", "item-10", "Conduit", 50, 60, "", "user-foreman")
	assert.True(t, c.ApplyEvent(next))
}
