package middleware

import (
	"net/http"
	"slices"

	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/model"
)

// RequireRole lets through authenticated users holding one of roles and
// answers 403 with message otherwise. It must run after Authenticate.
func RequireRole(contextManager model.ContextManager, message string, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := contextManager.GetUserFromContext(r.Context())
			if !ok {
				response.Error(w, nil, apierror.Unauthorized("Authentication required"), "")
				return
			}
			if !slices.Contains(roles, user.Role) {
				response.Error(w, nil, apierror.Forbidden(message), "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits admin and super-admin users.
func RequireAdmin(contextManager model.ContextManager) func(http.Handler) http.Handler {
	return RequireRole(contextManager, "Access denied. Admin privileges required.", model.AdminRoles...)
}

// RequireRegionalBishop admits regional bishops and administrators.
func RequireRegionalBishop(contextManager model.ContextManager) func(http.Handler) http.Handler {
	return RequireRole(contextManager, "Access denied. Regional Bishop privileges required.",
		model.RoleRegionalBishop, model.RoleAdmin, model.RoleSuperAdmin)
}
