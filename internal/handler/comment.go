package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/problem-hub/internal/service"
)

// CommentHandler serves /api/solutions/{id}/comments.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentRequest struct {
	Text string `json:"text"`
}

// HandleList serves GET /api/solutions/{id}/comments.
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListBySolution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, comments)
}

// HandleCreate serves POST /api/solutions/{id}/comments.
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), id, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, comment)
}
