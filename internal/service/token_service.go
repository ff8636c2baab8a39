package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager with the refresh hash
// kept on the user record.
type TokenService struct {
	manager model.TokenManager
	store   model.UserStore
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, store model.UserStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger}
}

// Issue signs a new access/refresh pair. Nothing is persisted.
func (s *TokenService) Issue(userID uuid.UUID, role model.Role) (model.TokenPair, error) {
	access, err := s.manager.GenerateAccessToken(userID, role)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, _, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair. The stored hash is
// swapped atomically, so the presented token cannot be used again.
//
// Errors:
//   - model.ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid: the token does not verify
//   - model.ErrTokenMismatch: the user is gone or the token is not the active one
//   - model.ErrAccountInactive: the account has been deactivated
func (s *TokenService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	userID, _, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.store.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenPair{}, model.ErrTokenMismatch
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get user: %w", err)
	}

	presentedHash := hashToken(presented)
	if user.RefreshTokenHash == nil || !equalHash(*user.RefreshTokenHash, presentedHash) {
		s.logger.Warn("Token service: refresh token is not the active one",
			"user_id", userID.String())
		return model.TokenPair{}, model.ErrTokenMismatch
	}
	if !user.IsActive {
		return model.TokenPair{}, model.ErrAccountInactive
	}

	pair, err := s.Issue(user.ID, user.Role)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.store.RotateRefreshToken(ctx, user.ID, presentedHash, hashToken(pair.RefreshToken)); err != nil {
		if errors.Is(err, model.ErrTokenMismatch) {
			s.logger.Warn("Token service: concurrent refresh lost the swap",
				"user_id", userID.String())
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, fmt.Errorf("persist new refresh: %w", err)
	}

	s.logger.Debug("Token service: refresh token rotated",
		"user_id", userID.String())

	return pair, nil
}

// Persist stores the refresh token of pair as the user's active session.
func (s *TokenService) Persist(ctx context.Context, userID uuid.UUID, pair model.TokenPair) error {
	if err := s.store.SetRefreshToken(ctx, userID, hashToken(pair.RefreshToken)); err != nil {
		return fmt.Errorf("persist refresh: %w", err)
	}
	return nil
}

// Revoke removes the user's active refresh token.
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.store.ClearRefreshToken(ctx, userID)
}

// Authenticate verifies an access token and loads its user.
//
// Errors:
//   - model.ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid
//   - model.ErrNotFound: the token's user no longer exists
//   - model.ErrAccountInactive: the account has been deactivated
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.manager.ParseAccessToken(accessToken)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return model.User{}, model.ErrAccountInactive
	}

	return user, nil
}

func equalHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
