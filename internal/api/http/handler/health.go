package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

const healthPingTimeout = 2 * time.Second

// Health reports service liveness and database reachability.
type Health struct {
	db          model.Pinger
	environment string
	logger      *logger.Logger
	now         func() time.Time
}

// NewHealth creates a new Health handler.
func NewHealth(db model.Pinger, environment string, logger *logger.Logger) *Health {
	return &Health{db: db, environment: environment, logger: logger, now: time.Now}
}

type healthBody struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

// Check handles GET /health.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	body := healthBody{
		Success:     true,
		Message:     "NTCOG Kenya Authentication API is running",
		Timestamp:   h.now().UTC(),
		Environment: h.environment,
		Database:    "connected",
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health handler: database ping failed",
			"error", err.Error())
		body.Success = false
		body.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, status, body)
}
