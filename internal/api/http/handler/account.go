package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/api/http/request"
	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// Account handles the profile endpoints of the authenticated user.
type Account struct {
	authService    AuthService
	contextManager model.ContextManager
	decoder        *request.Decoder
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(authService AuthService, contextManager model.ContextManager, decoder *request.Decoder, logger *logger.Logger) *Account {
	return &Account{
		authService:    authService,
		contextManager: contextManager,
		decoder:        decoder,
		logger:         logger,
	}
}

type profileData struct {
	ID              uuid.UUID  `json:"id"`
	FirstName       string     `json:"firstName"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	Church          string     `json:"church"`
	Role            model.Role `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type updatedProfileData struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Church    string    `json:"church"`
}

func (h *Account) currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apierror.Unauthorized("Authentication required"), "")
	}
	return user, ok
}

// Profile handles GET /profile.
func (h *Account) Profile(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Profile(r.Context(), current.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			response.Error(w, h.logger, apierror.NotFound("User not found"), "")
			return
		}
		response.Error(w, h.logger, apierror.Internal(err, "Failed to get profile"), "")
		return
	}

	response.OK(w, http.StatusOK, "", profileData{
		ID:              user.ID,
		FirstName:       user.FirstName,
		FullName:        user.FullName(),
		Email:           user.Email,
		Church:          user.Church,
		Role:            user.Role,
		IsEmailVerified: user.IsEmailVerified,
		LastLogin:       user.LastLogin,
		CreatedAt:       user.CreatedAt,
	})
}

// UpdateProfile handles PUT /profile. Only the church can be changed.
func (h *Account) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Failed to update profile")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), current.ID, req.Church)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			response.Error(w, h.logger, apierror.NotFound("User not found"), "")
			return
		}
		response.Error(w, h.logger, apierror.Internal(err, "Failed to update profile"), "")
		return
	}

	h.logger.Info("Account handler: profile updated",
		"user_id", user.ID.String())

	response.OK(w, http.StatusOK, "Profile updated successfully", updatedProfileData{
		ID:        user.ID,
		FirstName: user.FirstName,
		FullName:  user.FullName(),
		Email:     user.Email,
		Church:    user.Church,
	})
}

// ChangePassword handles POST /change-password.
func (h *Account) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Failed to change password")
		return
	}

	err := h.authService.ChangePassword(r.Context(), current.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCurrentPassword):
			err = apierror.Unauthorized("Current password is incorrect")
		case errors.Is(err, model.ErrNotFound):
			err = apierror.NotFound("User not found")
		default:
			err = apierror.Internal(err, "Failed to change password")
		}
		response.Error(w, h.logger, err, "")
		return
	}

	response.OK(w, http.StatusOK, "Password changed successfully", nil)
}
