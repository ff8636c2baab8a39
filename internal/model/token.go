package model

import "github.com/google/uuid"

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, role Role) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (token string, jti string, err error)
	ParseAccessToken(token string) (AccessClaims, error)
	ParseRefreshToken(token string) (userID uuid.UUID, jti string, err error)
}

// AccessClaims is the identity carried by a verified access token.
type AccessClaims struct {
	UserID uuid.UUID
	Role   Role
}

// TokenPair is an access token together with its refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
