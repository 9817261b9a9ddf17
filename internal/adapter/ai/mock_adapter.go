package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
)

// MockAnalysisService provides a deterministic analysis implementation for
// development and tests.
type MockAnalysisService struct {
	latency  time.Duration
	degraded bool
	cache    sync.Map
}

// NewMockAnalysisService creates a mock analysis service
func NewMockAnalysisService(latency time.Duration, degraded bool) *MockAnalysisService {
	return &MockAnalysisService{latency: latency, degraded: degraded}
}

// Invoke returns a canned insight payload after the configured latency
func (m *MockAnalysisService) Invoke(ctx context.Context, projectID, analysisType string, tier domain.AccessTier) (*ports.InsightPayload, error) {
	select {
	case <-time.After(m.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cacheKey := projectID + ":" + analysisType
	if cached, ok := m.cache.Load(cacheKey); ok {
		payload := cached.(ports.InsightPayload)
		return &payload, nil
	}

	payload := ports.InsightPayload{
		AnalysisType: analysisType,
		Summary:      fmt.Sprintf("Mock %s analysis for project %s at tier %s", analysisType, projectID, tier),
		Findings:     []string{"schedule tracks the phase plan", "budget utilization nominal"},
		Confidence:   0.72,
		Engines:      []string{"mock-primary", "mock-secondary"},
	}
	if m.degraded {
		payload.Engines = payload.Engines[:1]
		payload.Degraded = true
		payload.Confidence = 0.51
	}
	m.cache.Store(cacheKey, payload)
	return &payload, nil
}
