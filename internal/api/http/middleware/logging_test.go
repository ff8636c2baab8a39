package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/ntcogk/auth-server/internal/logger"
)

func TestLogging_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantLine []string
	}{
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			wantLine: []string{"level=INFO", `msg="HTTP request completed"`, "status=200", "bytes=2"},
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantLine: []string{"level=INFO", "status=401"},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantLine: []string{"level=ERROR", `msg="HTTP request failed"`, "status=500"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(&buf, 0, "text"))

			h := chimw.RequestID(lg.Handle(tt.handler))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

			line := buf.String()
			for _, want := range tt.wantLine {
				assert.Contains(t, line, want)
			}
			assert.Contains(t, line, "path=/api/auth/login")
			assert.Contains(t, line, "request_id=")
		})
	}
}
