// Package handler implements the REST endpoints of the authentication API.
package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/service"
)

// AuthService defines the account flows behind the /api/auth endpoints.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.RegisterResult, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
	VerifyEmail(ctx context.Context, email, code string) (service.Session, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) error
	Logout(ctx context.Context, userID uuid.UUID) error
	Profile(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, church *string) (model.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// TokenService defines refresh token rotation.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// StatsService defines the admin statistics report.
type StatsService interface {
	AdminStats(ctx context.Context) (model.AdminStats, error)
}

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

type noopEvents struct{}

func (noopEvents) AuthEvent(string, string) {}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

func outcome(err error) string {
	if err != nil {
		return outcomeFailure
	}
	return outcomeSuccess
}

// userSummary is the user object returned by login and email verification.
type userSummary struct {
	ID              uuid.UUID  `json:"id"`
	FirstName       string     `json:"firstName"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	Church          string     `json:"church"`
	Role            model.Role `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin"`
}

func newUserSummary(u model.User) userSummary {
	return userSummary{
		ID:              u.ID,
		FirstName:       u.FirstName,
		FullName:        u.FullName(),
		Email:           u.Email,
		Church:          u.Church,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
	}
}

type sessionData struct {
	User         userSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

func newSessionData(s service.Session) sessionData {
	return sessionData{
		User:         newUserSummary(s.User),
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
	}
}
