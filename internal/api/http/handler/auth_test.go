package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/ntcogk/auth-server/internal/api/http/context"
	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/service"
	"github.com/ntcogk/auth-server/internal/testutil"
)

func newTestAuth(development bool) (*Auth, *authServiceMock, *tokenServiceMock, *eventsRecorder) {
	svc := new(authServiceMock)
	tokens := new(tokenServiceMock)
	events := &eventsRecorder{}
	h := NewAuth(svc, tokens, httpctx.NewManager(), NewDecoder(1<<20), testutil.MakeNoopLogger(), AuthOptions{
		Development: development,
		Events:      events,
	})
	return h, svc, tokens, events
}

func testUser() model.User {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.User{
		ID:              uuid.New(),
		Email:           "jane.doe@example.com",
		FirstName:       "Jane Doe",
		Church:          "Nairobi Central",
		Role:            model.RoleUser,
		IsEmailVerified: true,
		IsActive:        true,
		LastLogin:       &now,
		CreatedAt:       now,
	}
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()

	input := service.RegisterInput{Email: "jane@example.com", Password: "password123", Church: "Nairobi Central"}
	body := map[string]any{"email": " jane@example.com ", "password": "password123", "church": "<script>x</script>Nairobi Central"}

	tests := []struct {
		name        string
		development bool
		body        any
		setup       func(svc *authServiceMock)
		wantStatus  int
		wantMessage string
		wantErrors  []string
		wantOTP     string
	}{
		{
			name:        "created in development echoes otp",
			development: true,
			body:        body,
			setup: func(svc *authServiceMock) {
				svc.On("Register", mock.Anything, input).
					Return(service.RegisterResult{User: model.User{Email: "jane@example.com"}, OTP: "123456"}, nil).Once()
			},
			wantStatus:  http.StatusCreated,
			wantMessage: "Registration successful. Please check your email for the verification code.",
			wantOTP:     "123456",
		},
		{
			name: "created in production hides otp",
			body: body,
			setup: func(svc *authServiceMock) {
				svc.On("Register", mock.Anything, input).
					Return(service.RegisterResult{User: model.User{Email: "jane@example.com"}, OTP: "123456"}, nil).Once()
			},
			wantStatus:  http.StatusCreated,
			wantMessage: "Registration successful. Please check your email for the verification code.",
		},
		{
			name:        "validation errors in field order",
			body:        map[string]any{"password": "short"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
			wantErrors: []string{
				"Valid email address is required",
				"Password must be at least 8 characters long",
				"Church is required",
			},
		},
		{
			name:        "malformed json",
			body:        "{",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
		{
			name: "email taken",
			body: body,
			setup: func(svc *authServiceMock) {
				svc.On("Register", mock.Anything, input).Return(service.RegisterResult{}, model.ErrEmailTaken).Once()
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Email already registered",
		},
		{
			name: "store failure",
			body: body,
			setup: func(svc *authServiceMock) {
				svc.On("Register", mock.Anything, input).Return(service.RegisterResult{}, errors.New("db down")).Once()
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Registration failed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, _ := newTestAuth(tt.development)
			if tt.setup != nil {
				tt.setup(svc)
			}

			rec := httptest.NewRecorder()
			h.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, tt.wantErrors, env.Errors)
			if tt.wantStatus == http.StatusCreated {
				var data registerData
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, "jane@example.com", data.Email)
				assert.Equal(t, tt.wantOTP, data.OTP)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	user := testUser()
	input := service.LoginInput{Email: "jane.doe@example.com", Password: "password123", RememberMe: true}
	body := map[string]any{"email": "jane.doe@example.com", "password": "password123", "rememberMe": true}

	tests := []struct {
		name        string
		session     service.Session
		err         error
		wantStatus  int
		wantMessage string
		wantEvent   string
	}{
		{
			name:        "success",
			session:     service.Session{User: user, Tokens: model.TokenPair{AccessToken: "a", RefreshToken: "r"}},
			wantStatus:  http.StatusOK,
			wantMessage: "Login successful",
			wantEvent:   "login:success",
		},
		{
			name:        "bad credentials",
			err:         model.ErrInvalidCredentials,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid email or password",
			wantEvent:   "login:failure",
		},
		{
			name:        "locked",
			err:         model.ErrAccountLocked,
			wantStatus:  http.StatusLocked,
			wantMessage: "Account is temporarily locked due to multiple failed login attempts. Please try again later.",
			wantEvent:   "login:failure",
		},
		{
			name:        "inactive",
			err:         model.ErrAccountInactive,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Account is deactivated. Please contact support.",
			wantEvent:   "login:failure",
		},
		{
			name:        "internal",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Login failed",
			wantEvent:   "login:failure",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, events := newTestAuth(false)
			svc.On("Login", mock.Anything, input).Return(tt.session, tt.err).Once()

			rec := httptest.NewRecorder()
			h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, []string{tt.wantEvent}, events.events)

			if tt.err == nil {
				var data sessionData
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, "a", data.AccessToken)
				assert.Equal(t, "r", data.RefreshToken)
				assert.Equal(t, user.ID, data.User.ID)
				assert.Equal(t, "Jane Doe", data.User.FullName)
				assert.True(t, data.User.IsEmailVerified)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAuth_Login_OmitsRefreshTokenWithoutRememberMe(t *testing.T) {
	h, svc, _, _ := newTestAuth(false)
	svc.On("Login", mock.Anything, service.LoginInput{Email: "jane@example.com", Password: "pw"}).
		Return(service.Session{User: testUser(), Tokens: model.TokenPair{AccessToken: "a"}}, nil).Once()

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@example.com", "password": "pw"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refreshToken")
}

func TestAuth_RefreshToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        any
		pair        model.TokenPair
		err         error
		callsSvc    bool
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing token",
			body:        map[string]any{},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Refresh token is required",
		},
		{
			name:        "rotated",
			body:        map[string]any{"refreshToken": "r1"},
			pair:        model.TokenPair{AccessToken: "a2", RefreshToken: "r2"},
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "Token refreshed successfully",
		},
		{
			name:        "reused token",
			body:        map[string]any{"refreshToken": "r1"},
			err:         model.ErrTokenMismatch,
			callsSvc:    true,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid refresh token",
		},
		{
			name:        "inactive",
			body:        map[string]any{"refreshToken": "r1"},
			err:         model.ErrAccountInactive,
			callsSvc:    true,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Account is deactivated",
		},
		{
			name:        "expired",
			body:        map[string]any{"refreshToken": "r1"},
			err:         model.ErrTokenExpired,
			callsSvc:    true,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid or expired refresh token",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, _, tokens, _ := newTestAuth(false)
			if tt.callsSvc {
				tokens.On("Refresh", mock.Anything, "r1").Return(tt.pair, tt.err).Once()
			}

			rec := httptest.NewRecorder()
			h.RefreshToken(rec, jsonRequest(t, http.MethodPost, "/api/auth/refresh-token", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.err == nil && tt.callsSvc {
				var pair model.TokenPair
				require.NoError(t, json.Unmarshal(env.Data, &pair))
				assert.Equal(t, tt.pair, pair)
			}
			tokens.AssertExpectations(t)
		})
	}
}

func TestAuth_Logout(t *testing.T) {
	t.Parallel()

	user := testUser()

	t.Run("clears session", func(t *testing.T) {
		t.Parallel()
		h, svc, _, _ := newTestAuth(false)
		svc.On("Logout", mock.Anything, user.ID).Return(nil).Once()

		rec := httptest.NewRecorder()
		h.Logout(rec, withUser(jsonRequest(t, http.MethodPost, "/api/auth/logout", nil), user))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logout successful", decodeEnvelope(t, rec).Message)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		h, svc, _, _ := newTestAuth(false)
		svc.On("Logout", mock.Anything, user.ID).Return(errors.New("db down")).Once()

		rec := httptest.NewRecorder()
		h.Logout(rec, withUser(jsonRequest(t, http.MethodPost, "/api/auth/logout", nil), user))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "Logout failed", env.Message)
		assert.Equal(t, "db down", env.Error)
	})

	t.Run("no user", func(t *testing.T) {
		t.Parallel()
		h, _, _, _ := newTestAuth(false)

		rec := httptest.NewRecorder()
		h.Logout(rec, jsonRequest(t, http.MethodPost, "/api/auth/logout", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuth_ForgotPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		development bool
		body        any
		token       string
		err         error
		callsSvc    bool
		wantStatus  int
		wantMessage string
		wantToken   string
	}{
		{
			name:        "known email in development",
			development: true,
			body:        map[string]any{"email": "jane@example.com"},
			token:       "reset-token",
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "If the email exists, a password reset link has been sent.",
			wantToken:   "reset-token",
		},
		{
			name:        "known email in production",
			body:        map[string]any{"email": "jane@example.com"},
			token:       "reset-token",
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "If the email exists, a password reset link has been sent.",
		},
		{
			name:        "unknown email looks the same",
			development: true,
			body:        map[string]any{"email": "jane@example.com"},
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "If the email exists, a password reset link has been sent.",
		},
		{
			name:        "invalid email is a plain bad request",
			body:        map[string]any{"email": "nope"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Valid email address is required",
		},
		{
			name:        "store failure",
			body:        map[string]any{"email": "jane@example.com"},
			err:         errors.New("db down"),
			callsSvc:    true,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to process password reset request",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, _ := newTestAuth(tt.development)
			if tt.callsSvc {
				svc.On("ForgotPassword", mock.Anything, "jane@example.com").Return(tt.token, tt.err).Once()
			}

			rec := httptest.NewRecorder()
			h.ForgotPassword(rec, jsonRequest(t, http.MethodPost, "/api/auth/forgot-password", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Empty(t, env.Errors)
			if tt.wantToken != "" {
				var data resetTokenData
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, tt.wantToken, data.ResetToken)
			} else {
				assert.NotContains(t, rec.Body.String(), "resetToken")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAuth_ResetPassword(t *testing.T) {
	t.Parallel()

	valid := map[string]any{"token": "tok", "password": "newpassword", "confirmPassword": "newpassword"}

	tests := []struct {
		name        string
		body        any
		err         error
		callsSvc    bool
		wantStatus  int
		wantMessage string
		wantErrors  []string
	}{
		{
			name:        "reset",
			body:        valid,
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "Password reset successful. You can now login with your new password.",
		},
		{
			name:        "bad token",
			body:        valid,
			err:         model.ErrInvalidResetToken,
			callsSvc:    true,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid or expired reset token",
		},
		{
			name:        "passwords differ",
			body:        map[string]any{"token": "tok", "password": "newpassword", "confirmPassword": "other"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
			wantErrors:  []string{"Passwords do not match"},
		},
		{
			name:        "short password",
			body:        map[string]any{"token": "tok", "password": "short", "confirmPassword": "short"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
			wantErrors:  []string{"Password must be at least 8 characters long"},
		},
		{
			name:        "store failure",
			body:        valid,
			err:         errors.New("db down"),
			callsSvc:    true,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to reset password",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, _ := newTestAuth(false)
			if tt.callsSvc {
				svc.On("ResetPassword", mock.Anything, "tok", "newpassword").Return(tt.err).Once()
			}

			rec := httptest.NewRecorder()
			h.ResetPassword(rec, jsonRequest(t, http.MethodPost, "/api/auth/reset-password", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, tt.wantErrors, env.Errors)
			svc.AssertExpectations(t)
		})
	}
}

func TestAuth_VerifyEmail(t *testing.T) {
	t.Parallel()

	user := testUser()
	body := map[string]any{"email": "jane.doe@example.com", "otp": "123456"}

	tests := []struct {
		name        string
		body        any
		session     service.Session
		err         error
		callsSvc    bool
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "verified",
			body:        body,
			session:     service.Session{User: user, Tokens: model.TokenPair{AccessToken: "a", RefreshToken: "r"}},
			callsSvc:    true,
			wantStatus:  http.StatusOK,
			wantMessage: "Email verified successfully",
		},
		{
			name:        "wrong code",
			body:        body,
			err:         model.ErrInvalidVerificationCode,
			callsSvc:    true,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid or expired verification code",
		},
		{
			name:        "malformed code",
			body:        map[string]any{"email": "jane.doe@example.com", "otp": "12ab"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
		},
		{
			name:        "store failure",
			body:        body,
			err:         errors.New("db down"),
			callsSvc:    true,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to verify email",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, _ := newTestAuth(false)
			if tt.callsSvc {
				svc.On("VerifyEmail", mock.Anything, "jane.doe@example.com", "123456").Return(tt.session, tt.err).Once()
			}

			rec := httptest.NewRecorder()
			h.VerifyEmail(rec, jsonRequest(t, http.MethodPost, "/api/auth/verify-email", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.wantStatus == http.StatusOK {
				var data sessionData
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, "r", data.RefreshToken)
				assert.True(t, data.User.IsEmailVerified)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAuth_ResendOTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		development bool
		otp         string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "sent in development",
			development: true,
			otp:         "654321",
			wantStatus:  http.StatusOK,
			wantMessage: "Verification code sent successfully",
		},
		{
			name:        "unknown user",
			err:         model.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "User not found",
		},
		{
			name:        "already verified",
			err:         model.ErrAlreadyVerified,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Email is already verified",
		},
		{
			name:        "store failure",
			err:         errors.New("db down"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to resend verification code",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc, _, _ := newTestAuth(tt.development)
			svc.On("ResendOTP", mock.Anything, "jane@example.com").Return(tt.otp, tt.err).Once()

			rec := httptest.NewRecorder()
			h.ResendOTP(rec, jsonRequest(t, http.MethodPost, "/api/auth/resend-otp", map[string]any{"email": "jane@example.com"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.otp != "" {
				var data otpData
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, tt.otp, data.OTP)
			}
			svc.AssertExpectations(t)
		})
	}
}
