package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/internal/usecase"
)

// TaskHandler serves the task mirror and the toggle command
type TaskHandler struct {
	projects *usecase.ProjectUseCase
	sessions *sessionManager
	log      logger.Logger
}

// RegisterRoutes registers task routes
func (h *TaskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/tasks", h.List).Methods(http.MethodGet)
	router.HandleFunc("/projects/{id}/tasks/{taskID}/toggle", h.Toggle).Methods(http.MethodPost)
}

// List returns the project's tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": session.Tasks()})
}

// Toggle flips a task between open and done for callers allowed to touch it
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	vars := mux.Vars(r)

	session, err := h.sessions.get(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := h.projects.ToggleTask(r.Context(), session, actor, vars["taskID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
