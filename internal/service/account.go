package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/model"
)

// Profile returns the stored user.
func (a *Auth) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the editable profile fields. A nil church leaves
// it unchanged.
func (a *Auth) UpdateProfile(ctx context.Context, userID uuid.UUID, church *string) (model.User, error) {
	user, err := a.Profile(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if church != nil {
		user.Church = *church
	}
	user.UpdatedAt = a.now()

	saved, err := a.users.Save(ctx, user)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to save user: %w", err)
	}

	return saved, nil
}

// ChangePassword replaces the password after checking the current one.
func (a *Auth) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := a.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if err := a.hasher.Compare(user.PasswordHash, current); err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			return model.ErrInvalidCurrentPassword
		}
		return err
	}

	passwordHash, err := a.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePassword(ctx, user.ID, passwordHash, a.now()); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.logger.Info("Auth service: password changed",
		"user_id", user.ID.String())

	return nil
}
