package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ntcogk/auth-server/internal/api/grpc/handler"
	"github.com/ntcogk/auth-server/internal/api/grpc/middleware"
	"github.com/ntcogk/auth-server/internal/logger"
)

// Router represents the gRPC router of the operational surface.
type Router struct {
	health *handler.Health
	logger *logger.Logger
}

// New creates new gRPC Router instance.
func New(health *handler.Health, logger *logger.Logger) *Router {
	return &Router{
		health: health,
		logger: logger,
	}
}

// Register builds a gRPC server with logging and panic recovery
// interceptors and registers the health and reflection services.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(logging.Recover)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoveryOpt),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt),
		),
	)

	healthpb.RegisterHealthServer(s, r.health.Server())
	reflection.Register(s)

	return s
}
