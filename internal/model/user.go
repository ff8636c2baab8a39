package model

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserStore defines persistence operations for users.
//
// Every method that changes token or lockout state is a single atomic
// conditional update, so concurrent requests never observe a half-applied
// transition.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Save(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error

	RecordLoginFailure(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (LockoutState, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, refreshTokenHash *string, now time.Time) error

	SetEmailVerification(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	ConsumeEmailVerification(ctx context.Context, email, code string, now time.Time) (User, error)

	SetPasswordReset(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (User, error)

	SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, presentedHash, nextHash string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error

	Count(ctx context.Context, filter UserFilter) (int64, error)
	TopChurches(ctx context.Context, limit int) ([]ChurchCount, error)
}

// Role is a user's authorization role.
type Role string

const (
	RoleUser           Role = "user"
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "super-admin"
	RoleRegionalBishop Role = "regional-bishop"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin, RoleRegionalBishop:
		return true
	}
	return false
}

// AdminRoles are the roles counted as administrators.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// User represents a stored user with authentication material.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	Church       string
	Role         Role

	IsEmailVerified          bool
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time

	PasswordResetToken   *string
	PasswordResetExpires *time.Time

	RefreshTokenHash *string

	LastLogin           *time.Time
	FailedLoginAttempts int
	LockUntil           *time.Time
	IsActive            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked reports whether a lockout is still in force at now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}

// FullName returns the name shown to clients. Only a display name derived
// from the email is collected, so it equals FirstName.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameFromEmail derives a display name from the local part of an
// email: dots and underscores become spaces and the first letter of every
// space-separated word is upper-cased. "jane.doe@x.org" gives "Jane Doe",
// "mary-jane@x.org" gives "Mary-jane".
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)

	upper := cases.Upper(language.Und)
	words := strings.Split(local, " ")
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}
		words[i] = upper.String(string(r)) + word[size:]
	}

	return strings.Join(words, " ")
}

// UserFilter narrows Count. Nil fields are not applied.
type UserFilter struct {
	Verified     *bool
	Active       *bool
	Roles        []Role
	CreatedSince *time.Time
}

// ChurchCount is a single group of the per-church aggregation.
type ChurchCount struct {
	Church string `json:"_id"`
	Count  int64  `json:"count"`
}

// LockoutPolicy configures failed-login accounting.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// LockoutState is the counter state after a recorded failure.
type LockoutState struct {
	FailedAttempts int
	LockUntil      *time.Time
}
