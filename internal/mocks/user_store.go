// Package mocks contains testify mocks of the model interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.UserStore = (*UserStore)(nil)

// UserStore mocks model.UserStore.
type UserStore struct {
	mock.Mock
}

func (m *UserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Save(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	args := m.Called(ctx, id, passwordHash, now)
	return args.Error(0)
}

func (m *UserStore) RecordLoginFailure(ctx context.Context, id uuid.UUID, policy model.LockoutPolicy, now time.Time) (model.LockoutState, error) {
	args := m.Called(ctx, id, policy, now)
	return args.Get(0).(model.LockoutState), args.Error(1)
}

func (m *UserStore) RecordLoginSuccess(ctx context.Context, id uuid.UUID, refreshTokenHash *string, now time.Time) error {
	args := m.Called(ctx, id, refreshTokenHash, now)
	return args.Error(0)
}

func (m *UserStore) SetEmailVerification(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, id, code, expiresAt)
	return args.Error(0)
}

func (m *UserStore) ConsumeEmailVerification(ctx context.Context, email, code string, now time.Time) (model.User, error) {
	args := m.Called(ctx, email, code, now)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) SetPasswordReset(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *UserStore) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (model.User, error) {
	args := m.Called(ctx, tokenHash, passwordHash, now)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

func (m *UserStore) RotateRefreshToken(ctx context.Context, id uuid.UUID, presentedHash, nextHash string) error {
	args := m.Called(ctx, id, presentedHash, nextHash)
	return args.Error(0)
}

func (m *UserStore) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserStore) Count(ctx context.Context, filter model.UserFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserStore) TopChurches(ctx context.Context, limit int) ([]model.ChurchCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChurchCount), args.Error(1)
}
