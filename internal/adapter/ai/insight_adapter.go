package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// InsightAdapter calls the external multi-engine analysis service. The
// service may answer with a single-engine degraded payload; that is passed
// through, not treated as an error.
type InsightAdapter struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewInsightAdapter creates the analysis adapter
func NewInsightAdapter(baseURL, apiKey string, timeout time.Duration) *InsightAdapter {
	return &InsightAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type invokeRequest struct {
	ProjectID    string `json:"project_id"`
	AnalysisType string `json:"analysis_type"`
	Tier         string `json:"tier"`
}

// Invoke runs an analysis for a project at the caller's access tier
func (a *InsightAdapter) Invoke(ctx context.Context, projectID, analysisType string, tier domain.AccessTier) (*ports.InsightPayload, error) {
	body, err := json.Marshal(invokeRequest{ProjectID: projectID, AnalysisType: analysisType, Tier: tier.String()})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, apperror.ExternalDegraded("analysis request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ExternalDegraded(fmt.Sprintf("analysis service returned %d", resp.StatusCode), nil)
	}

	var payload ports.InsightPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperror.ExternalDegraded("malformed analysis payload", err)
	}
	payload.Degraded = len(payload.Engines) <= 1
	return &payload, nil
}
