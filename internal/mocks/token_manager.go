package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.TokenManager = (*TokenManager)(nil)

// TokenManager mocks model.TokenManager.
type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID, role model.Role) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	args := m.Called(userID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *TokenManager) ParseAccessToken(token string) (model.AccessClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.AccessClaims), args.Error(1)
}

func (m *TokenManager) ParseRefreshToken(token string) (uuid.UUID, string, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}
