package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/service/invite"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// TeamHandler serves the invitation flow: issue an invite code, verify it
type TeamHandler struct {
	invites  *invite.Service
	sessions *sessionManager
	log      logger.Logger
}

// RegisterRoutes registers team routes
func (h *TeamHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/invites", h.Invite).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/invites/{inviteID}/verify", h.Verify).Methods(http.MethodPost)
}

type inviteRequest struct {
	InviteID string `json:"invite_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Invite records an invite citation and mails the invitation code
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if actor.Role != domain.RoleOwner && actor.Role != domain.RoleForeman {
		writeError(w, apperror.AuthorizationDenied("role cannot invite team members"))
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}
	if req.InviteID == "" || req.Email == "" {
		writeError(w, apperror.Validation("invite id and email are required"))
		return
	}

	session, err := h.sessions.get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.invites.Invite(r.Context(), session.Ledger, req.InviteID, req.Email, domain.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type verifyInviteRequest struct {
	Token string `json:"token"`
}

// Verify checks a presented invitation code against the stored hash
func (h *TeamHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("malformed request body"))
		return
	}
	vars := mux.Vars(r)
	session, err := h.sessions.get(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"valid": h.invites.VerifyToken(session.Ledger, vars["inviteID"], req.Token),
	})
}
