package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// SynthesisRule derives missing citations from already-available data. Each
// rule is independently idempotent: it returns only citations whose slot is
// absent in the snapshot, so a second run over the same snapshot is a no-op.
type SynthesisRule struct {
	Name   string
	Derive func(ctx context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error)
}

// Synthesizer fills deterministic gaps in the fact ledger after
// normalization and persists each synthesized fact exactly once.
type Synthesizer struct {
	citations ports.CitationRepository
	weather   ports.WeatherService
	log       logger.Logger
	rules     []SynthesisRule
}

// NewSynthesizer creates a synthesizer with the standard rule table
func NewSynthesizer(citations ports.CitationRepository, weather ports.WeatherService, log logger.Logger) *Synthesizer {
	s := &Synthesizer{citations: citations, weather: weather, log: log}
	s.rules = []SynthesisRule{
		{Name: "trade_selection", Derive: deriveTradeSelection},
		{Name: "timeline", Derive: deriveTimeline},
		{Name: "end_date", Derive: deriveEndDate},
		{Name: "team_invites", Derive: deriveTeamInvites},
		{Name: "budget", Derive: deriveBudget},
		{Name: "contracts", Derive: deriveContracts},
		{Name: "weather_alert", Derive: s.deriveWeatherAlert},
	}
	return s
}

// Run evaluates every rule against the ledger's current snapshot, upserts
// derived citations into memory immediately, and persists each one with an
// absence-guarded insert. Rules are independent, never transactional as a
// batch: one rule's failure is logged and does not block the others, and a
// persistence failure never rolls back memory.
func (s *Synthesizer) Run(ctx context.Context, ledger *domain.Ledger, src *domain.ProjectSource) []*domain.Citation {
	var added []*domain.Citation
	for _, rule := range s.rules {
		snap := ledger.Snapshot()
		derived, err := rule.Derive(ctx, snap, src)
		if err != nil {
			s.log.Warn(ctx, "synthesis rule degraded to no-op", map[string]interface{}{
				"rule": rule.Name, "project_id": src.ProjectID, "error": err.Error(),
			})
			continue
		}
		for _, c := range derived {
			// The ledger may have changed since the snapshot (a sibling
			// load, a feed event). Re-check the slot before both writes.
			if occupied(ledger, c) {
				continue
			}
			ledger.Upsert(c)
			added = append(added, c)
			s.persist(ctx, src.ProjectID, rule.Name, c)
		}
	}
	return added
}

func occupied(ledger *domain.Ledger, c *domain.Citation) bool {
	if c.CiteType.MultiInstance() {
		return ledger.GetKeyed(c.CiteType, c.InstanceKey()) != nil
	}
	return ledger.Get(c.CiteType) != nil
}

// persist writes one synthesized citation. The insert re-verifies absence at
// write time: the check and the write are separate round-trips and can race
// with a concurrent load, so a conflict means the fact already exists and
// the rule aborts silently for that slot.
func (s *Synthesizer) persist(ctx context.Context, projectID, rule string, c *domain.Citation) {
	err := s.citations.InsertIfAbsent(ctx, projectID, c)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrDuplicateKey) {
		s.log.Info(ctx, "synthesized fact already present, skipping", map[string]interface{}{
			"rule": rule, "project_id": projectID, "cite_type": string(c.CiteType),
		})
		return
	}
	// Durable storage may lag memory until the next successful flush.
	s.log.Error(ctx, "failed to persist synthesized citation", err, map[string]interface{}{
		"rule": rule, "project_id": projectID, "cite_type": string(c.CiteType),
	})
}

func deriveTradeSelection(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	if snap.Has(domain.CiteTypeTradeSelection) {
		return nil, nil
	}
	if src.Profile == nil || strings.TrimSpace(src.Profile.Trade) == "" {
		return nil, nil
	}
	label := labelCase(src.Profile.Trade)
	c := domain.NewSyntheticCitation(domain.CiteTypeTradeSelection, "trade_selection", label, label, "trade")
	return []*domain.Citation{c}, nil
}

// deriveTimeline and deriveEndDate are separate rules: each date is
// synthesized only if that specific citation is absent, not both-or-nothing.
func deriveTimeline(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	if snap.Has(domain.CiteTypeTimeline) {
		return nil, nil
	}
	earliest, _, ok := taskDateRange(src.Tasks)
	if !ok {
		return nil, nil
	}
	answer := earliest.Format("2006-01-02")
	c := domain.NewSyntheticCitation(domain.CiteTypeTimeline, "start_date", answer, answer, "tasks")
	return []*domain.Citation{c}, nil
}

func deriveEndDate(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	if snap.Has(domain.CiteTypeEndDate) {
		return nil, nil
	}
	_, latest, ok := taskDateRange(src.Tasks)
	if !ok {
		return nil, nil
	}
	answer := latest.Format("2006-01-02")
	c := domain.NewSyntheticCitation(domain.CiteTypeEndDate, "end_date", answer, answer, "tasks")
	return []*domain.Citation{c}, nil
}

func deriveTeamInvites(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	var out []*domain.Citation
	for _, m := range src.Members {
		if snap.HasKeyed(domain.CiteTypeTeamInvite, m.ID) {
			continue
		}
		c := domain.NewSyntheticCitation(domain.CiteTypeTeamInvite, "team_member", m.Name, m.Name, m.ID)
		c.WithMeta(domain.MetaMemberID, m.ID).WithMeta("role", string(m.Role))
		out = append(out, c)
	}
	for _, inv := range src.Invitations {
		if snap.HasKeyed(domain.CiteTypeTeamInvite, inv.ID) {
			continue
		}
		c := domain.NewSyntheticCitation(domain.CiteTypeTeamInvite, "team_member", inv.Email, inv.Email, inv.ID)
		c.WithMeta(domain.MetaMemberID, inv.ID).WithMeta("role", string(inv.Role)).WithMeta("status", "invited")
		out = append(out, c)
	}
	return out, nil
}

func deriveBudget(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	if snap.Has(domain.CiteTypeBudget) {
		return nil, nil
	}
	if src.Financial == nil || src.Financial.Total <= 0 {
		return nil, nil
	}
	answer := fmt.Sprintf("%s %.2f", src.Financial.Currency, src.Financial.Total)
	c := domain.NewSyntheticCitation(domain.CiteTypeBudget, "budget", strings.TrimSpace(answer), src.Financial.Total, "financial")
	return []*domain.Citation{c}, nil
}

func deriveContracts(_ context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	var out []*domain.Citation
	for _, contract := range src.Contracts {
		if snap.HasKeyed(domain.CiteTypeContract, contract.ID) {
			continue
		}
		c := domain.NewSyntheticCitation(domain.CiteTypeContract, "contract", contract.Title, contract.Amount, contract.ID)
		c.WithMeta(domain.MetaContractID, contract.ID).WithMeta("party", contract.Party)
		out = append(out, c)
	}
	return out, nil
}

func (s *Synthesizer) deriveWeatherAlert(ctx context.Context, snap *domain.Snapshot, src *domain.ProjectSource) ([]*domain.Citation, error) {
	if snap.Has(domain.CiteTypeWeatherAlert) || s.weather == nil {
		return nil, nil
	}
	address := siteAddress(snap, src)
	if address == "" {
		return nil, nil
	}
	report, err := s.weather.Fetch(ctx, address, 3)
	if err != nil {
		return nil, err
	}
	answer := report.Current
	if len(report.Alerts) > 0 {
		answer = report.Alerts[0].Headline
	}
	if answer == "" {
		return nil, nil
	}
	c := domain.NewSyntheticCitation(domain.CiteTypeWeatherAlert, "weather", answer, report, "weather")
	return []*domain.Citation{c}, nil
}

func siteAddress(snap *domain.Snapshot, src *domain.ProjectSource) string {
	if loc := snap.Get(domain.CiteTypeLocation); loc != nil && loc.Answer != "" {
		return loc.Answer
	}
	if src.Profile != nil {
		return src.Profile.Address
	}
	return ""
}

// taskDateRange returns the earliest and latest due dates among non-archived
// tasks with a due date set.
func taskDateRange(tasks []*domain.Task) (earliest, latest time.Time, ok bool) {
	for _, t := range tasks {
		if t.Archived() || t.DueDate.IsZero() {
			continue
		}
		if !ok {
			earliest, latest, ok = t.DueDate, t.DueDate, true
			continue
		}
		if t.DueDate.Before(earliest) {
			earliest = t.DueDate
		}
		if t.DueDate.After(latest) {
			latest = t.DueDate
		}
	}
	return earliest, latest, ok
}

// labelCase turns a raw trade value like "interior fit-out" into a display
// label like "Interior Fit-Out".
func labelCase(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if r == '_' {
				r = ' '
			}
			b.WriteRune(r)
			upperNext = true
		case upperNext:
			b.WriteRune(toUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}
