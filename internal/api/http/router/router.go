package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/ntcogk/auth-server/internal/api/http/handler"
	"github.com/ntcogk/auth-server/internal/api/http/middleware"
	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/observability"
	"github.com/ntcogk/auth-server/internal/ratelimit"
)

// Handlers groups the endpoint handlers the router mounts.
type Handlers struct {
	Auth    *handler.Auth
	Account *handler.Account
	Admin   *handler.Admin
	Health  *handler.Health
}

// Limiters holds the fixed-window limiters. A nil limiter is not applied.
type Limiters struct {
	API           *ratelimit.Limiter
	Auth          *ratelimit.Limiter
	PasswordReset *ratelimit.Limiter
}

// Options configures cross-cutting middleware.
type Options struct {
	Production     bool
	RequestTimeout time.Duration
	AllowedOrigins []string
	// TrustProxy takes the client address from True-Client-IP, X-Real-IP
	// or X-Forwarded-For. Enable it only behind a proxy that overwrites
	// those headers.
	TrustProxy bool
}

// Router builds the HTTP routing tree of the authentication API.
type Router struct {
	handlers       Handlers
	authenticate   *middleware.Authenticate
	contextManager model.ContextManager
	limiters       Limiters
	metrics        *observability.Metrics
	opts           Options
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	handlers Handlers,
	authenticate *middleware.Authenticate,
	contextManager model.ContextManager,
	limiters Limiters,
	metrics *observability.Metrics,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		handlers:       handlers,
		authenticate:   authenticate,
		contextManager: contextManager,
		limiters:       limiters,
		metrics:        metrics,
		opts:           opts,
		logger:         logger,
	}
}

// Register returns the configured handler.
func (r *Router) Register() http.Handler {
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	if r.opts.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(middleware.NewLogging(r.logger).Handle)
	mux.Use(chimw.Recoverer)
	mux.Use(r.metrics.Middleware)
	mux.Use(middleware.SecureHeaders(r.opts.Production, r.logger))
	mux.Use(middleware.CORS(r.opts.AllowedOrigins))
	if r.opts.RequestTimeout > 0 {
		mux.Use(chimw.Timeout(r.opts.RequestTimeout))
	}

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusNotFound, response.Envelope{Message: "Route not found"})
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.Envelope{Message: "Method not allowed"})
	})

	mux.Get("/health", r.handlers.Health.Check)
	mux.Method(http.MethodGet, "/metrics", r.metrics.Handler())

	mux.Route("/api", func(api chi.Router) {
		api.Use(r.limit(r.limiters.API))
		api.Route("/auth", r.registerAuthRoutes)
	})

	return mux
}

func (r *Router) registerAuthRoutes(auth chi.Router) {
	h := r.handlers

	auth.With(r.limit(r.limiters.Auth)).Post("/register", h.Auth.Register)
	auth.With(r.limit(r.limiters.Auth)).Post("/login", h.Auth.Login)
	auth.Post("/refresh-token", h.Auth.RefreshToken)
	auth.With(r.limit(r.limiters.PasswordReset)).Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/verify-email", h.Auth.VerifyEmail)
	auth.Post("/resend-otp", h.Auth.ResendOTP)

	auth.Group(func(protected chi.Router) {
		protected.Use(r.authenticate.Handle)

		protected.Post("/logout", h.Auth.Logout)
		protected.Get("/profile", h.Account.Profile)
		protected.Put("/profile", h.Account.UpdateProfile)
		protected.Post("/change-password", h.Account.ChangePassword)

		protected.With(middleware.RequireAdmin(r.contextManager)).Get("/admin/stats", h.Admin.Stats)
	})
}

func (r *Router) limit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	keyFunc := httprate.KeyByIP
	if r.opts.TrustProxy {
		keyFunc = httprate.KeyByRealIP
	}
	return ratelimit.Middleware(l, ratelimit.MiddlewareOptions{
		KeyFunc:  keyFunc,
		Logger:   r.logger,
		OnReject: r.metrics.RateLimited,
	})
}
