package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// AuthOptions configures the account-security rules of Auth.
type AuthOptions struct {
	Lockout     model.LockoutPolicy
	OTPTTL      time.Duration
	ResetTTL    time.Duration
	AdminEmails []string
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	Church   string
}

// RegisterResult is the created user and the code that was mailed to it.
type RegisterResult struct {
	User model.User
	OTP  string
}

// LoginInput is a validated login request.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// Session is an authenticated user with its tokens.
type Session struct {
	User   model.User
	Tokens model.TokenPair
}

// Auth implements the account flows: registration, login, email
// verification and password reset.
type Auth struct {
	users    model.UserStore
	hasher   model.PasswordHasher
	tokens   *TokenService
	notifier model.Notifier
	logger   *logger.Logger
	opts     AuthOptions
	admins   map[string]struct{}
	now      func() time.Time
}

func NewAuth(
	users model.UserStore,
	hasher model.PasswordHasher,
	tokens *TokenService,
	notifier model.Notifier,
	logger *logger.Logger,
	opts AuthOptions,
) *Auth {
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		if email = model.NormalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &Auth{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		admins:   admins,
		now:      time.Now,
	}
}

// RoleFor returns the role a new account with email receives.
func (a *Auth) RoleFor(email string) model.Role {
	if _, ok := a.admins[model.NormalizeEmail(email)]; ok {
		return model.RoleAdmin
	}
	return model.RoleUser
}

// Register creates an unverified account and mails it a verification code.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := model.NormalizeEmail(in.Email)
	a.logger.Debug("Auth service: starting user registration",
		"email", logger.MaskEmail(email))

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: user already exists",
			"email", logger.MaskEmail(email))
		return RegisterResult{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		return RegisterResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	otp, err := generateOTP()
	if err != nil {
		return RegisterResult{}, err
	}

	now := a.now()
	expires := now.Add(a.opts.OTPTTL)
	user := model.User{
		ID:                       uuid.New(),
		Email:                    email,
		PasswordHash:             passwordHash,
		FirstName:                model.DisplayNameFromEmail(strings.TrimSpace(in.Email)),
		Church:                   in.Church,
		Role:                     a.RoleFor(email),
		EmailVerificationToken:   &otp,
		EmailVerificationExpires: &expires,
		IsActive:                 true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	created, err := a.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return RegisterResult{}, err
		}
		a.logger.Error("Auth service: failed to create user",
			"email", logger.MaskEmail(email),
			"error", err.Error())
		return RegisterResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.sendVerificationCode(ctx, created, otp)

	a.logger.Info("Auth service: user registered",
		"user_id", created.ID.String(),
		"role", string(created.Role))

	return RegisterResult{User: created, OTP: otp}, nil
}

// Login verifies credentials, maintains lockout accounting and issues a
// token pair. The refresh token is persisted and returned only when
// RememberMe is set.
func (a *Auth) Login(ctx context.Context, in LoginInput) (Session, error) {
	user, err := a.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	now := a.now()
	if user.IsLocked(now) {
		a.logger.Info("Auth service: login attempt on locked account",
			"user_id", user.ID.String())
		return Session{}, model.ErrAccountLocked
	}
	if !user.IsActive {
		return Session{}, model.ErrAccountInactive
	}

	if err := a.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, model.ErrInvalidCredentials) {
			return Session{}, err
		}

		state, err := a.users.RecordLoginFailure(ctx, user.ID, a.opts.Lockout, now)
		if err != nil {
			return Session{}, fmt.Errorf("failed to record login failure: %w", err)
		}
		if state.LockUntil != nil {
			a.logger.Warn("Auth service: account locked after failed logins",
				"user_id", user.ID.String(),
				"attempts", state.FailedAttempts,
				"lock_until", state.LockUntil.Format(time.RFC3339))
		}
		return Session{}, model.ErrInvalidCredentials
	}

	pair, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return Session{}, err
	}

	var refreshHash *string
	if in.RememberMe {
		h := hashToken(pair.RefreshToken)
		refreshHash = &h
	} else {
		pair.RefreshToken = ""
	}

	if err := a.users.RecordLoginSuccess(ctx, user.ID, refreshHash, now); err != nil {
		return Session{}, fmt.Errorf("failed to record login: %w", err)
	}

	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	if refreshHash != nil {
		user.RefreshTokenHash = refreshHash
	}

	a.logger.Info("Auth service: user logged in",
		"user_id", user.ID.String(),
		"remember_me", in.RememberMe)

	return Session{User: user, Tokens: pair}, nil
}

// VerifyEmail consumes a verification code and opens a session. The
// refresh token is always persisted.
func (a *Auth) VerifyEmail(ctx context.Context, email, code string) (Session, error) {
	user, err := a.users.ConsumeEmailVerification(ctx, email, code, a.now())
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, model.ErrInvalidVerificationCode
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to verify email: %w", err)
	}

	pair, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return Session{}, err
	}
	if err := a.tokens.Persist(ctx, user.ID, pair); err != nil {
		return Session{}, err
	}

	if err := a.notifier.SendWelcome(ctx, user); err != nil {
		a.logger.Warn("Auth service: failed to send welcome email",
			"user_id", user.ID.String(),
			"error", err.Error())
	}

	a.logger.Info("Auth service: email verified",
		"user_id", user.ID.String())

	return Session{User: user, Tokens: pair}, nil
}

// ResendOTP replaces the verification code of an unverified account.
func (a *Auth) ResendOTP(ctx context.Context, email string) (string, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to get user by email: %w", err)
	}
	if user.IsEmailVerified {
		return "", model.ErrAlreadyVerified
	}

	otp, err := generateOTP()
	if err != nil {
		return "", err
	}
	if err := a.users.SetEmailVerification(ctx, user.ID, otp, a.now().Add(a.opts.OTPTTL)); err != nil {
		return "", fmt.Errorf("failed to set email verification: %w", err)
	}

	a.sendVerificationCode(ctx, user, otp)

	return otp, nil
}

// ForgotPassword starts a password reset. Unknown emails return an empty
// token and no error so callers respond identically.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Debug("Auth service: password reset for unknown email",
			"email", logger.MaskEmail(email))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user by email: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return "", err
	}
	if err := a.users.SetPasswordReset(ctx, user.ID, hashToken(token), a.now().Add(a.opts.ResetTTL)); err != nil {
		return "", fmt.Errorf("failed to set password reset: %w", err)
	}

	if err := a.notifier.SendPasswordReset(ctx, user, token); err != nil {
		a.logger.Warn("Auth service: failed to send password reset email",
			"user_id", user.ID.String(),
			"error", err.Error())
	}

	return token, nil
}

// ResetPassword consumes a reset token and replaces the password.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) error {
	passwordHash, err := a.hasher.Hash(password)
	if err != nil {
		return err
	}

	user, err := a.users.ConsumePasswordReset(ctx, hashToken(token), passwordHash, a.now())
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	a.logger.Info("Auth service: password reset",
		"user_id", user.ID.String())

	return nil
}

// Logout ends the user's persisted session.
func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := a.tokens.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	a.logger.Info("Auth service: user logged out",
		"user_id", userID.String())

	return nil
}

func (a *Auth) sendVerificationCode(ctx context.Context, user model.User, otp string) {
	if err := a.notifier.SendVerificationCode(ctx, user, otp); err != nil {
		a.logger.Warn("Auth service: failed to send verification email",
			"user_id", user.ID.String(),
			"error", err.Error())
	}
}
