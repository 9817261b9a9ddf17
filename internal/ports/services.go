package ports

import (
	"context"

	"github.com/siteledger/siteledger/internal/domain"
)

// InsightPayload is a structured AI analysis result. Engines lists the
// engines that contributed; a degraded run may carry a single engine and
// callers must tolerate that.
type InsightPayload struct {
	AnalysisType string   `json:"analysis_type"`
	Summary      string   `json:"summary"`
	Findings     []string `json:"findings,omitempty"`
	Confidence   float64  `json:"confidence"`
	Engines      []string `json:"engines"`
	Degraded     bool     `json:"degraded"`
}

// AnalysisService defines the AI analysis collaborator. No latency
// guarantee; callers guard double invocation with their own busy flag.
type AnalysisService interface {
	// Invoke runs an analysis for a project at the caller's access tier
	Invoke(ctx context.Context, projectID, analysisType string, tier domain.AccessTier) (*InsightPayload, error)
}

// WeatherService defines the live weather collaborator
type WeatherService interface {
	// Fetch retrieves current conditions, forecast and alerts for an address
	Fetch(ctx context.Context, address string, days int) (*domain.WeatherReport, error)
}

// RecipientResult is the delivery outcome for one recipient
type RecipientResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// NotificationService defines the email collaborator. Delivery is
// per-recipient: one failing recipient does not abort the rest.
type NotificationService interface {
	// Send dispatches a templated message and reports per-recipient results
	Send(ctx context.Context, recipients []string, templateData map[string]string) ([]RecipientResult, error)
}
