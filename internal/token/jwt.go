package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.TokenManager = (*JWT)(nil)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// AccessClaims are the claims of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"userId"`
	Role      string    `json:"role"`
	TokenType string    `json:"typ"`
}

// RefreshClaims are the claims of a refresh token. The JTI makes every
// issued refresh token unique even within the same second.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"userId"`
	TokenType string    `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC. Access and refresh
// tokens are signed with different secrets.
type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewJWT creates a new JWT token manager.
func NewJWT(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWT {
	return &JWT{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// GenerateAccessToken creates an access token carrying the user ID and role.
func (j *JWT) GenerateAccessToken(userID uuid.UUID, role model.Role) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		UserID:    userID,
		Role:      string(role),
		TokenType: typeAccess,
	})

	tokenString, err := token.SignedString(j.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	now := j.now()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
		},
		UserID:    userID,
		TokenType: typeRefresh,
	})

	tokenString, err := token.SignedString(j.refreshSecret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, jti, nil
}

// ParseAccessToken validates an access token and returns its identity.
// Expired tokens yield model.ErrTokenExpired, anything else that fails
// verification yields model.ErrTokenInvalid.
func (j *JWT) ParseAccessToken(tokenString string) (model.AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenString, claims, j.accessSecret); err != nil {
		return model.AccessClaims{}, err
	}
	if claims.TokenType != typeAccess {
		return model.AccessClaims{}, fmt.Errorf("%w: token type mismatch: %s", model.ErrTokenInvalid, claims.TokenType)
	}

	return model.AccessClaims{UserID: claims.UserID, Role: model.Role(claims.Role)}, nil
}

// ParseRefreshToken validates a refresh token and returns the user ID and JTI.
func (j *JWT) ParseRefreshToken(tokenString string) (uuid.UUID, string, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenString, claims, j.refreshSecret); err != nil {
		return uuid.Nil, "", err
	}
	if claims.TokenType != typeRefresh {
		return uuid.Nil, "", fmt.Errorf("%w: token type mismatch: %s", model.ErrTokenInvalid, claims.TokenType)
	}

	return claims.UserID, claims.ID, nil
}

func (j *JWT) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return model.ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return model.ErrTokenInvalid
	}

	return nil
}
