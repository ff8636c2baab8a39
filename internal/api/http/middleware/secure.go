package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"github.com/ntcogk/auth-server/internal/logger"
)

// SecureHeaders sets the standard security response headers. HTTPS
// redirects apply only when production is set.
func SecureHeaders(production bool, log *logger.Logger) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		STSIncludeSubdomains:  production,
		IsDevelopment:         !production,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := s.Process(w, r); err != nil {
				log.Warn("secure headers blocked request", "error", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// CORS allows credentialed requests from origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
