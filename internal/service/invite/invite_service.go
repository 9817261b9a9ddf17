package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// Service creates team invitations: a random token e-mailed to the invitee,
// with only its bcrypt hash kept in the invite citation's metadata.
type Service struct {
	citations ports.CitationRepository
	notifier  ports.NotificationService
	log       logger.Logger
}

// NewService creates the invite service
func NewService(citations ports.CitationRepository, notifier ports.NotificationService, log logger.Logger) *Service {
	return &Service{citations: citations, notifier: notifier, log: log}
}

// Invite records a TEAM_MEMBER_INVITE citation for the invitee and mails the
// raw invitation token. Email failure is reported to the caller but does not
// undo the citation.
func (s *Service) Invite(ctx context.Context, ledger *domain.Ledger, inviteID, email string, role domain.Role) (*domain.Citation, error) {
	rawToken, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash invitation token: %w", err)
	}

	c := domain.NewCitation(domain.CiteTypeTeamInvite, "team_member", email, email)
	c.WithMeta(domain.MetaMemberID, inviteID).
		WithMeta("role", string(role)).
		WithMeta("status", "invited").
		WithMeta(domain.MetaInviteHash, string(hash))

	ledger.Upsert(c)
	if err := s.citations.Upsert(ctx, ledger.ProjectID(), c); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		results, err := s.notifier.Send(ctx, []string{email}, map[string]string{
			"template": "team_invitation",
			"role":     string(role),
			"token":    rawToken,
		})
		if err != nil || (len(results) > 0 && !results[0].Success) {
			s.log.Warn(ctx, "invitation email not delivered", map[string]interface{}{
				"invite_id": inviteID, "email": email,
			})
		}
	}
	return c, nil
}

// VerifyToken checks a presented invitation code against the stored hash
func (s *Service) VerifyToken(ledger *domain.Ledger, inviteID, rawToken string) bool {
	c := ledger.GetKeyed(domain.CiteTypeTeamInvite, inviteID)
	if c == nil {
		return false
	}
	hash := c.Metadata[domain.MetaInviteHash]
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawToken)) == nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
