package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping() error
}

// HealthHandler answers GET /health for load balancers and humans. now is
// a field so tests can pin the timestamp.
type HealthHandler struct {
	db      Pinger
	version string
	now     func() time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting version.
func NewHealthHandler(db Pinger, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, version: version, now: time.Now, logger: logger}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// HandleHealth reports 200 "ok" while the database answers and 503
// "unavailable" when it doesn't.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Message:   "problem-hub API is running",
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Version:   h.version,
	}

	status := http.StatusOK
	if err := h.db.Ping(); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, status, resp)
}
