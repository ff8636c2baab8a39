package mocks

import (
	"context"
	"net"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ntcogk/auth-server/internal/model"
)

var (
	_ model.SocialUserCounter = (*SocialUserCounter)(nil)
	_ model.PasswordHasher    = (*PasswordHasher)(nil)
	_ model.Pinger            = (*Pinger)(nil)
	_ model.SecurityLayer     = (*SecurityLayer)(nil)
)

// SocialUserCounter mocks model.SocialUserCounter.
type SocialUserCounter struct {
	mock.Mock
}

func (m *SocialUserCounter) SocialStats(ctx context.Context, since time.Time) (model.SocialStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(model.SocialStats), args.Error(1)
}

// PasswordHasher mocks model.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Compare(hash, password string) error {
	args := m.Called(hash, password)
	return args.Error(0)
}

// Pinger mocks model.Pinger.
type Pinger struct {
	mock.Mock
}

func (m *Pinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Authenticator mocks the bearer-token lookup used by the HTTP middleware.
type Authenticator struct {
	mock.Mock
}

func (m *Authenticator) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(model.User), args.Error(1)
}

// SecurityLayer mocks model.SecurityLayer.
type SecurityLayer struct {
	mock.Mock
}

func (m *SecurityLayer) Listen(protocol, addr string) (net.Listener, error) {
	args := m.Called(protocol, addr)
	ln, _ := args.Get(0).(net.Listener)
	return ln, args.Error(1)
}
