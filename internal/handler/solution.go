package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/problem-hub/internal/service"
)

// SolutionHandler serves solutions under a problem and the upvote
// toggle. Everything but the list needs a bearer token.
type SolutionHandler struct {
	solutions *service.SolutionService
	logger    *slog.Logger
}

// NewSolutionHandler creates a SolutionHandler.
func NewSolutionHandler(solutions *service.SolutionService, logger *slog.Logger) *SolutionHandler {
	return &SolutionHandler{solutions: solutions, logger: logger}
}

type solutionRequest struct {
	Description string `json:"description"`
}

// HandleList serves GET /api/problems/{id}/solutions.
func (h *SolutionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	solutions, err := h.solutions.ListByProblem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, solutions)
}

// HandleCreate serves POST /api/problems/{id}/solutions.
func (h *SolutionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req solutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	solution, err := h.solutions.Create(r.Context(), id, chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, solution)
}

// HandleUpvote serves POST /api/solutions/{id}/upvote. Calling it twice
// undoes the first call.
func (h *SolutionHandler) HandleUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.solutions.ToggleUpvote(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}
