package invite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

type stubCitations struct {
	upserted []*domain.Citation
	err      error
}

func (s *stubCitations) List(_ context.Context, _ string) ([]*domain.Citation, error) {
	return nil, nil
}

func (s *stubCitations) Upsert(_ context.Context, _ string, c *domain.Citation) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, c)
	return nil
}

func (s *stubCitations) InsertIfAbsent(_ context.Context, _ string, _ *domain.Citation) error {
	return nil
}

func (s *stubCitations) UpdateByID(_ context.Context, _, _, _ string, _ interface{}) error {
	return nil
}

type stubNotifier struct {
	recipients []string
	data       map[string]string
}

func (n *stubNotifier) Send(_ context.Context, recipients []string, templateData map[string]string) ([]ports.RecipientResult, error) {
	n.recipients = recipients
	n.data = templateData
	results := make([]ports.RecipientResult, len(recipients))
	for i, r := range recipients {
		results[i] = ports.RecipientResult{Recipient: r, Success: true}
	}
	return results, nil
}

func TestService_Invite(t *testing.T) {
	repo := &stubCitations{}
	notifier := &stubNotifier{}
	s := NewService(repo, notifier, logger.NewNop())
	ledger := domain.NewLedger("proj-1", nil)

	c, err := s.Invite(context.Background(), ledger, "inv-1", "new@example.com", domain.RoleWorker)

	assert.NoError(t, err)
	assert.Equal(t, domain.CiteTypeTeamInvite, c.CiteType)
	assert.Equal(t, "inv-1", c.InstanceKey())
	assert.Equal(t, "invited", c.Metadata["status"])

	// The ledger and the store both hold the invite.
	assert.NotNil(t, ledger.GetKeyed(domain.CiteTypeTeamInvite, "inv-1"))
	assert.Len(t, repo.upserted, 1)

	// The invitee gets the raw token; the citation keeps only the hash.
	assert.Equal(t, []string{"new@example.com"}, notifier.recipients)
	rawToken := notifier.data["token"]
	assert.NotEmpty(t, rawToken)
	assert.NotEqual(t, rawToken, c.Metadata[domain.MetaInviteHash])
	assert.NotEmpty(t, c.Metadata[domain.MetaInviteHash])
}

func TestService_VerifyToken(t *testing.T) {
	notifier := &stubNotifier{}
	s := NewService(&stubCitations{}, notifier, logger.NewNop())
	ledger := domain.NewLedger("proj-1", nil)

	_, err := s.Invite(context.Background(), ledger, "inv-1", "new@example.com", domain.RoleWorker)
	assert.NoError(t, err)
	rawToken := notifier.data["token"]

	assert.True(t, s.VerifyToken(ledger, "inv-1", rawToken))
	assert.False(t, s.VerifyToken(ledger, "inv-1", "wrong-code"))
	assert.False(t, s.VerifyToken(ledger, "inv-2", rawToken))
}

func TestService_InvitePersistFailure(t *testing.T) {
	repo := &stubCitations{err: assert.AnError}
	s := NewService(repo, &stubNotifier{}, logger.NewNop())
	ledger := domain.NewLedger("proj-1", nil)

	_, err := s.Invite(context.Background(), ledger, "inv-1", "new@example.com", domain.RoleWorker)

	assert.Error(t, err)
}
