package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/httprate"

	"github.com/ntcogk/auth-server/internal/logger"
)

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	// KeyFunc identifies the client; httprate.KeyByIP (the socket peer)
	// when nil.
	KeyFunc httprate.KeyFunc
	Logger  *logger.Logger
	// OnReject is called with the rule name for every rejected request.
	OnReject func(rule string)
}

type rejection struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware enforces l on every request. Store failures let the request
// through.
func Middleware(l *Limiter, opts MiddlewareOptions) func(http.Handler) http.Handler {
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	message := l.rule.Message
	if message == "" {
		message = "Too many requests, please try again later."
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := keyFunc(r)
			if err != nil || clientID == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), clientID)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("Rate limiter: store failed, allowing request",
						"rule", l.rule.Name,
						"error", err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if opts.OnReject != nil {
				opts.OnReject(l.rule.Name)
			}
			retry := res.RetryAfterSeconds()
			h.Set("Retry-After", strconv.Itoa(retry))
			h.Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rejection{
				Success:    false,
				Message:    message,
				RetryAfter: retry,
			})
		})
	}
}
