package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ntcogk/auth-server/internal/api/http/request"
	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/service"
)

// Auth handles the public authentication endpoints.
type Auth struct {
	authService    AuthService
	tokenService   TokenService
	contextManager model.ContextManager
	decoder        *request.Decoder
	events         EventRecorder
	logger         *logger.Logger
	development    bool
}

// AuthOptions configures Auth.
type AuthOptions struct {
	// Development echoes verification codes and reset tokens in responses.
	Development bool
	Events      EventRecorder
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	tokenService TokenService,
	contextManager model.ContextManager,
	decoder *request.Decoder,
	logger *logger.Logger,
	opts AuthOptions,
) *Auth {
	events := opts.Events
	if events == nil {
		events = noopEvents{}
	}

	return &Auth{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		decoder:        decoder,
		events:         events,
		logger:         logger,
		development:    opts.Development,
	}
}

type registerData struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

// Register handles POST /register.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Registration failed")
		return
	}

	h.logger.Debug("Auth handler: processing registration request",
		"email", logger.MaskEmail(req.Email))

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Church:   req.Church,
	})
	h.events.AuthEvent("register", outcome(err))
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			response.Error(w, h.logger, apierror.BadRequest("Email already registered"), "")
			return
		}
		response.Error(w, h.logger, apierror.Internal(err, "Registration failed"), "")
		return
	}

	data := registerData{Email: result.User.Email}
	if h.development {
		data.OTP = result.OTP
	}

	response.OK(w, http.StatusCreated, "Registration successful. Please check your email for the verification code.", data)
}

// Login handles POST /login.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Login failed")
		return
	}

	session, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	h.events.AuthEvent("login", outcome(err))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			err = apierror.Unauthorized("Invalid email or password")
		case errors.Is(err, model.ErrAccountLocked):
			err = apierror.Locked("Account is temporarily locked due to multiple failed login attempts. Please try again later.")
		case errors.Is(err, model.ErrAccountInactive):
			err = apierror.Unauthorized("Account is deactivated. Please contact support.")
		default:
			err = apierror.Internal(err, "Login failed")
		}
		response.Error(w, h.logger, err, "")
		return
	}

	response.OK(w, http.StatusOK, "Login successful", newSessionData(session))
}

// RefreshToken handles POST /refresh-token.
func (h *Auth) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Invalid or expired refresh token")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		response.Error(w, h.logger, apierror.Unauthorized("Refresh token is required"), "")
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	h.events.AuthEvent("refresh", outcome(err))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTokenMismatch):
			err = apierror.Unauthorized("Invalid refresh token")
		case errors.Is(err, model.ErrAccountInactive):
			err = apierror.Unauthorized("Account is deactivated")
		default:
			h.logger.Info("Auth handler: refresh rejected",
				"error", err.Error())
			err = apierror.Unauthorized("Invalid or expired refresh token")
		}
		response.Error(w, h.logger, err, "")
		return
	}

	response.OK(w, http.StatusOK, "Token refreshed successfully", pair)
}

// Logout handles POST /logout.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apierror.Unauthorized("Authentication required"), "")
		return
	}

	if err := h.authService.Logout(r.Context(), user.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		response.Error(w, h.logger, apierror.Internal(err, "Logout failed"), "")
		return
	}
	h.events.AuthEvent("logout", outcomeSuccess)

	response.OK(w, http.StatusOK, "Logout successful", nil)
}

type resetTokenData struct {
	ResetToken string `json:"resetToken,omitempty"`
}

// ForgotPassword handles POST /forgot-password. Known and unknown emails
// get the same response.
func (h *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
			err = apierror.BadRequest(apiErr.Errors[0])
		}
		response.Error(w, h.logger, err, "Failed to process password reset request")
		return
	}

	token, err := h.authService.ForgotPassword(r.Context(), req.Email)
	h.events.AuthEvent("forgot_password", outcome(err))
	if err != nil {
		response.Error(w, h.logger, apierror.Internal(err, "Failed to process password reset request"), "")
		return
	}

	var data any
	if h.development && token != "" {
		data = resetTokenData{ResetToken: token}
	}

	response.OK(w, http.StatusOK, "If the email exists, a password reset link has been sent.", data)
}

// ResetPassword handles POST /reset-password.
func (h *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Failed to reset password")
		return
	}

	err := h.authService.ResetPassword(r.Context(), req.Token, req.Password)
	h.events.AuthEvent("reset_password", outcome(err))
	if err != nil {
		if errors.Is(err, model.ErrInvalidResetToken) {
			response.Error(w, h.logger, apierror.BadRequest("Invalid or expired reset token"), "")
			return
		}
		response.Error(w, h.logger, apierror.Internal(err, "Failed to reset password"), "")
		return
	}

	response.OK(w, http.StatusOK, "Password reset successful. You can now login with your new password.", nil)
}

// VerifyEmail handles POST /verify-email.
func (h *Auth) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Failed to verify email")
		return
	}

	session, err := h.authService.VerifyEmail(r.Context(), req.Email, req.OTP)
	h.events.AuthEvent("verify_email", outcome(err))
	if err != nil {
		if errors.Is(err, model.ErrInvalidVerificationCode) {
			response.Error(w, h.logger, apierror.BadRequest("Invalid or expired verification code"), "")
			return
		}
		response.Error(w, h.logger, apierror.Internal(err, "Failed to verify email"), "")
		return
	}

	response.OK(w, http.StatusOK, "Email verified successfully", newSessionData(session))
}

type otpData struct {
	OTP string `json:"otp,omitempty"`
}

// ResendOTP handles POST /resend-otp.
func (h *Auth) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		response.Error(w, h.logger, err, "Failed to resend verification code")
		return
	}

	otp, err := h.authService.ResendOTP(r.Context(), req.Email)
	h.events.AuthEvent("resend_otp", outcome(err))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			err = apierror.NotFound("User not found")
		case errors.Is(err, model.ErrAlreadyVerified):
			err = apierror.BadRequest("Email is already verified")
		default:
			err = apierror.Internal(err, "Failed to resend verification code")
		}
		response.Error(w, h.logger, err, "")
		return
	}

	var data any
	if h.development {
		data = otpData{OTP: otp}
	}

	response.OK(w, http.StatusOK, "Verification code sent successfully", data)
}
