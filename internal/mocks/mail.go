package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ntcogk/auth-server/internal/model"
)

var (
	_ model.Notifier = (*Notifier)(nil)
	_ model.Mailer   = (*Mailer)(nil)
)

// Notifier mocks model.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) SendVerificationCode(ctx context.Context, user model.User, code string) error {
	args := m.Called(ctx, user, code)
	return args.Error(0)
}

func (m *Notifier) SendPasswordReset(ctx context.Context, user model.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func (m *Notifier) SendWelcome(ctx context.Context, user model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Mailer mocks model.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(ctx context.Context, msg model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
