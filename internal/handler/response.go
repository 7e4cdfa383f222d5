package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has one
// consistent shape:
//
//	4xx: {"message": "problem not found with id abc123"}
//	400: {"message": "title is required", "field": "title"}
//	5xx: {"message": "image upload failed", "error": "dial tcp: connection refused"}
//
// Only server errors carry the "error" detail. "field" appears on
// validation errors that know which input was wrong.
//
// LOGGING:
// The helpers take the handler's logger rather than using slog's default,
// so every line carries whatever attributes main attached to it. Server
// errors are logged at Error with the full chain; client errors at Debug.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/problem-hub/internal/apperror"
)

// MessageResponse is the body of every client error and of responses that
// carry nothing but a confirmation.
type MessageResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse is the body of a 500.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// writeJSON sends data as JSON with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to its HTTP status.
//
//	Validation, Conflict, InvalidCredentials → 400
//	Unauthenticated                         → 401
//	Forbidden, InvalidToken                 → 403
//	NotFound                                → 404
//	anything else                           → 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden),
		errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes the matching body.
//
// errors.As finds the *AppError anywhere in the chain, so a service error
// like fmt.Errorf("creating problem: %w", apperror.UploadFailed(cause))
// still yields the AppError's human-readable Message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)

	var appErr *apperror.AppError
	hasAppErr := errors.As(err, &appErr)

	if status < http.StatusInternalServerError {
		logger.Debug("request rejected",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		resp := MessageResponse{Message: http.StatusText(status)}
		if hasAppErr {
			resp.Message = appErr.Message
			if errors.Is(err, apperror.ErrValidation) {
				resp.Field = appErr.Field
			}
		}
		writeJSON(w, logger, status, resp)
		return
	}

	logger.Error("request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	message := "internal server error"
	if hasAppErr {
		message = appErr.Message
	}
	writeJSON(w, logger, status, ErrorResponse{Message: message, Error: err.Error()})
}

// decodeJSON reads a JSON body into dst. A malformed body is a client
// error; the decoder's message is kept as the cause for the log line.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		invalid := apperror.ValidationFailed("body", "invalid JSON body")
		invalid.Cause = err
		return invalid
	}
	return nil
}
