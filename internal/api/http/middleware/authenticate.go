package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// TokenService resolves the user behind a bearer token.
type TokenService interface {
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

// Authenticate validates bearer tokens and injects the user into the
// request context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid access token.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			response.Error(w, m.logger, apierror.Unauthorized("No token provided. Authorization required."), "")
			return
		}

		user, err := m.tokenService.Authenticate(r.Context(), token)
		if err != nil {
			response.Error(w, m.logger, authError(err), "Authentication failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetUserToContext(r.Context(), user)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authError(err error) error {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return apierror.Unauthorized("Token expired. Please login again.")
	case errors.Is(err, model.ErrTokenMissing), errors.Is(err, model.ErrTokenInvalid):
		return apierror.Unauthorized("Invalid token. Authorization failed.")
	case errors.Is(err, model.ErrNotFound):
		return apierror.Unauthorized("User not found")
	case errors.Is(err, model.ErrAccountInactive):
		return apierror.Unauthorized("Account is deactivated")
	default:
		return apierror.Internal(err, "Authentication failed")
	}
}
