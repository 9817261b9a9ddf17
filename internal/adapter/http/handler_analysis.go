package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/usecase"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// AnalysisHandler surfaces the AI analysis collaborator through the facade
type AnalysisHandler struct {
	projects *usecase.ProjectUseCase
	log      logger.Logger
}

// RegisterRoutes registers analysis routes
func (h *AnalysisHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/analyze", h.Analyze).Methods(http.MethodPost)
}

type analyzeRequest struct {
	AnalysisType string `json:"analysis_type"`
}

// Analyze invokes the analysis service once; concurrent requests for the
// same project are rejected by the busy flag, not queued.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}
	if req.AnalysisType == "" {
		req.AnalysisType = "progress"
	}

	payload, err := h.projects.Analyze(r.Context(), mux.Vars(r)["id"], req.AnalysisType, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
