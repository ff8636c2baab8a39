package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// ServiceName is the health-checked service name.
const ServiceName = "ntcogk.auth.v1.Auth"

const pingTimeout = 2 * time.Second

// Health serves grpc.health.v1.Health with a status driven by database
// pings.
type Health struct {
	server *health.Server
	db     model.Pinger
	logger *logger.Logger
}

// NewHealth creates a new Health handler. Both the overall and the named
// service start as NOT_SERVING until the first successful ping.
func NewHealth(db model.Pinger, logger *logger.Logger) *Health {
	h := &Health{
		server: health.NewServer(),
		db:     db,
		logger: logger,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the health service implementation to register.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Check pings the database once and updates the serving status.
func (h *Health) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health handler: database ping failed",
			"error", err.Error())
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}

	h.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Monitor runs Check every interval until ctx is done, then marks the
// service as shutting down.
func (h *Health) Monitor(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
