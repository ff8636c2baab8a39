package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/service"
)

type authServiceMock struct {
	mock.Mock
}

func (m *authServiceMock) Register(ctx context.Context, in service.RegisterInput) (service.RegisterResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.RegisterResult), args.Error(1)
}

func (m *authServiceMock) Login(ctx context.Context, in service.LoginInput) (service.Session, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *authServiceMock) VerifyEmail(ctx context.Context, email, code string) (service.Session, error) {
	args := m.Called(ctx, email, code)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *authServiceMock) ResendOTP(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *authServiceMock) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *authServiceMock) ResetPassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

func (m *authServiceMock) Logout(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *authServiceMock) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *authServiceMock) UpdateProfile(ctx context.Context, userID uuid.UUID, church *string) (model.User, error) {
	args := m.Called(ctx, userID, church)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type tokenServiceMock struct {
	mock.Mock
}

func (m *tokenServiceMock) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(model.TokenPair), args.Error(1)
}

type statsServiceMock struct {
	mock.Mock
}

func (m *statsServiceMock) AdminStats(ctx context.Context) (model.AdminStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.AdminStats), args.Error(1)
}

type eventsRecorder struct {
	events []string
}

func (r *eventsRecorder) AuthEvent(event, outcome string) {
	r.events = append(r.events, event+":"+outcome)
}
