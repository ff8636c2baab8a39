package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ntcogk/auth-server/internal/model"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", hash)

	assert.NoError(t, h.Compare(hash, "Secret123!"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), model.ErrInvalidCredentials)

	err = h.Compare("not-a-hash", "Secret123!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
