package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/usecase"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// ChangeHandler serves the pending quantity change workflow
type ChangeHandler struct {
	coordinator *usecase.ChangeCoordinator
	log         logger.Logger
}

// RegisterRoutes registers change routes
func (h *ChangeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/changes", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/changes", h.ListPending).Methods(http.MethodGet)
	router.HandleFunc("/changes/{changeID}/approve", h.Approve).Methods(http.MethodPost)
	router.HandleFunc("/changes/{changeID}/reject", h.Reject).Methods(http.MethodPost)
	router.HandleFunc("/changes/{changeID}/cancel", h.Cancel).Methods(http.MethodPost)
}

// Create opens a pending quantity change
func (h *ChangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req usecase.CreateChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}
	req.ProjectID = mux.Vars(r)["id"]

	change, err := h.coordinator.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, change)
}

// ListPending returns the open changes for a project
func (h *ChangeHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	changes, err := h.coordinator.ListPending(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": changes})
}

// Approve resolves a change in favor of the new quantity. The response
// carries the approved change; applying new_quantity to the underlying item
// is the caller's follow-up.
func (h *ChangeHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.coordinator.Approve)
}

// Reject resolves a change with no effect on the underlying item
func (h *ChangeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.coordinator.Reject)
}

// Cancel withdraws a still-pending request
func (h *ChangeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.coordinator.Cancel)
}

type resolveFunc func(ctx context.Context, actor usecase.Actor, changeID string) (*domain.PendingChange, error)

func (h *ChangeHandler) resolve(w http.ResponseWriter, r *http.Request, op resolveFunc) {
	actor, _ := ActorFrom(r.Context())
	change, err := op(r.Context(), actor, mux.Vars(r)["changeID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}
