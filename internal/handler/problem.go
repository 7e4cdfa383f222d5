package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/problem-hub/internal/service"
)

// ProblemHandler serves the /api/problems resource. Reads are public;
// writes run behind auth.RequireAuth and are owner-checked by the service.
type ProblemHandler struct {
	problems *service.ProblemService
	logger   *slog.Logger
}

// NewProblemHandler creates a ProblemHandler.
func NewProblemHandler(problems *service.ProblemService, logger *slog.Logger) *ProblemHandler {
	return &ProblemHandler{problems: problems, logger: logger}
}

// HandleList returns every problem, newest first.
//
// HTTP: GET /api/problems
func (h *ProblemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problems.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, problems)
}

// HandleGet returns one problem.
//
// HTTP: GET /api/problems/{id}
func (h *ProblemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problems.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, problem)
}

// HandleCreate stores a new problem owned by the caller.
//
// HTTP: POST /api/problems
// REQUEST BODY: JSON {"title", "description", "location"}, or the same
// fields as multipart/form-data with an optional "image" file.
func (h *ProblemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	fields, image, err := readProblemRequest(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	problem, err := h.problems.Create(r.Context(), id, service.NewProblem{
		Title:       deref(fields.Title),
		Description: deref(fields.Description),
		Location:    deref(fields.Location),
	}, image)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, problem)
}

// HandleUpdate applies a partial update. Only fields present in the
// request are changed; a new "image" part replaces the stored image.
//
// HTTP: PUT /api/problems/{id}
func (h *ProblemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	patch, image, err := readProblemRequest(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	problem, err := h.problems.Update(r.Context(), id, chi.URLParam(r, "id"), patch, image)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, problem)
}

// HandleDelete removes a problem and its image.
//
// HTTP: DELETE /api/problems/{id}
func (h *ProblemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.problems.Delete(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "problem deleted successfully"})
}
