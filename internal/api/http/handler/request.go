package handler

import (
	"github.com/ntcogk/auth-server/internal/api/http/request"
)

// messages maps validation failures to the client messages of the API.
var messages = map[string]string{
	"email":                "Valid email address is required",
	"password.required":    "Password is required",
	"password.min":         "Password must be at least 8 characters long",
	"church.required":      "Church is required",
	"church.max":           "Church name is too long",
	"token":                "Reset token is required",
	"confirmPassword":      "Passwords do not match",
	"otp":                  "Verification code must be 6 digits",
	"currentPassword":      "Current password is required",
	"newPassword.required": "New password is required",
	"newPassword.min":      "New password must be at least 8 characters long",
	"newPassword.nefield":  "New password must differ from the current password",
}

// NewDecoder returns the request decoder used by all handlers.
func NewDecoder(maxBytes int64) *request.Decoder {
	return request.NewDecoder(maxBytes, messages)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Church   string `json:"church" validate:"required,max=200"`
}

func (r *registerRequest) Sanitize() {
	r.Email = request.Clean(r.Email)
	r.Church = request.Clean(r.Church)
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

func (r *loginRequest) Sanitize() {
	r.Email = request.Clean(r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *emailRequest) Sanitize() {
	r.Email = request.Clean(r.Email)
}

type resetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

func (r *resetPasswordRequest) Sanitize() {
	r.Token = request.Clean(r.Token)
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (r *verifyEmailRequest) Sanitize() {
	r.Email = request.Clean(r.Email)
	r.OTP = request.Clean(r.OTP)
}

type updateProfileRequest struct {
	Church *string `json:"church" validate:"omitempty,max=200"`
}

func (r *updateProfileRequest) Sanitize() {
	if r.Church != nil {
		c := request.Clean(*r.Church)
		r.Church = &c
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,nefield=CurrentPassword"`
}
