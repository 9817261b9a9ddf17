package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/usecase"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// screenKeys maps each dashboard screen to the cite types it projects
var screenKeys = map[string][]domain.CiteType{
	"overview": {
		domain.CiteTypeProjectName, domain.CiteTypeProjectType, domain.CiteTypeLocation,
		domain.CiteTypeGFALock, domain.CiteTypeTradeSelection, domain.CiteTypeSiteCondition,
		domain.CiteTypeTimeline, domain.CiteTypeEndDate, domain.CiteTypeWeatherAlert,
	},
	"financial": {domain.CiteTypeBudget, domain.CiteTypeContract},
	"team":      {domain.CiteTypeTeamInvite},
	"contracts": {domain.CiteTypeContract},
}

// FactHandler serves the read-only citation projections and edit commands
type FactHandler struct {
	projects *usecase.ProjectUseCase
	sessions *sessionManager
	log      logger.Logger
}

// RegisterRoutes registers fact routes
func (h *FactHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/facts", h.List).Methods(http.MethodGet)
	router.HandleFunc("/projects/{id}/facts/{factID}", h.Edit).Methods(http.MethodPut)
	router.HandleFunc("/projects/{id}/load", h.Reload).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/editmode", h.SetEditMode).Methods(http.MethodPost)
}

// List returns the citation projection for one screen, with a tier badge
func (h *FactHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	projectID := mux.Vars(r)["id"]

	session, err := h.sessions.get(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	screen := r.URL.Query().Get("screen")
	keys, ok := screenKeys[screen]
	if !ok {
		writeError(w, apperror.Validation("unknown screen"))
		return
	}

	facts := h.projects.Projection(session, actor.Role, keys)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"facts": facts,
		"tier":  domain.TierOf(actor.Role).String(),
	})
}

type editFactRequest struct {
	Answer string      `json:"answer"`
	Value  interface{} `json:"value"`
}

// Edit applies the save command of the edit flow: update-by-id on the ledger
func (h *FactHandler) Edit(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	vars := mux.Vars(r)

	var req editFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}

	session, err := h.sessions.get(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	editMode := h.sessions.editModeFor(vars["id"])
	if err := h.projects.EditCitation(r.Context(), session, actor, editMode, vars["factID"], req.Answer, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Ledger.GetByID(vars["factID"]))
}

// Reload forces a fresh project load, re-running normalization and synthesis
func (h *FactHandler) Reload(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	session, err := h.sessions.reload(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"citations": len(session.Ledger.All()),
		"tasks":     len(session.Tasks()),
	})
}

type editModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEditMode toggles the owner's edit-mode flag for a project
func (h *FactHandler) SetEditMode(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if actor.Role != domain.RoleOwner {
		writeError(w, apperror.AuthorizationDenied("only the owner can toggle edit mode"))
		return
	}
	var req editModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}
	h.sessions.setEditMode(mux.Vars(r)["id"], req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
