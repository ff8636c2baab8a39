package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/testutil"
)

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		handler  grpc.UnaryHandler
		wantCode codes.Code
		wantLog  string
	}{
		{
			name:   "success path",
			method: "/svc/Method",
			handler: func(ctx context.Context, req any) (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "ok", nil
			},
			wantCode: codes.OK,
			wantLog:  `level=INFO msg="gRPC request completed"`,
		},
		{
			name:   "health probe logged at debug",
			method: "/grpc.health.v1.Health/Check",
			handler: func(ctx context.Context, req any) (any, error) {
				return "ok", nil
			},
			wantCode: codes.OK,
			wantLog:  `level=DEBUG msg="gRPC request completed"`,
		},
		{
			name:   "grpc error propagates",
			method: "/svc/Method",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, status.Error(codes.InvalidArgument, "bad input")
			},
			wantCode: codes.InvalidArgument,
			wantLog:  `level=INFO msg="gRPC request rejected"`,
		},
		{
			name:   "non-grpc error is Unknown",
			method: "/svc/Method",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, errors.New("boom")
			},
			wantCode: codes.Unknown,
			wantLog:  `level=ERROR msg="gRPC request failed"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(&buf, -4, "text"))

			info := &grpc.UnaryServerInfo{FullMethod: tt.method}
			resp, err := lg.HandleGRPC(context.Background(), struct{}{}, info, tt.handler)

			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
			}
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Contains(t, buf.String(), "method="+tt.method)
		})
	}
}

func TestLogging_Recover(t *testing.T) {
	lg := NewLogging(testutil.MakeNoopLogger())

	err := lg.Recover(context.Background(), "kaboom")
	assert.Equal(t, codes.Internal, status.Code(err))
}
