package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ntcogk/auth-server/internal/logger"
)

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Health probes are logged at debug level.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String(),
	}

	switch {
	case err != nil && (code == codes.Internal || code == codes.Unknown):
		l.logger.Error("gRPC request failed", append(args, "error", err.Error())...)
	case err != nil:
		l.logger.Info("gRPC request rejected", append(args, "error", err.Error())...)
	case isHealthProbe(info.FullMethod):
		l.logger.Debug("gRPC request completed", args...)
	default:
		l.logger.Info("gRPC request completed", args...)
	}

	return resp, err
}

func isHealthProbe(method string) bool {
	return method == "/grpc.health.v1.Health/Check" || method == "/grpc.health.v1.Health/Watch"
}

// Recover converts a handler panic into codes.Internal and logs it.
func (l *Logging) Recover(ctx context.Context, p any) error {
	l.logger.Error("gRPC handler panicked",
		"panic", p)
	return status.Error(codes.Internal, "internal error")
}
