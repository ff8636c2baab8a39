package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	otpMin        = 100000
	otpSpan       = 900000
	resetTokenLen = 32
)

// generateOTP returns a six-digit code uniformly drawn from [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", otpMin+n.Int64()), nil
}

// generateResetToken returns 32 random bytes, hex encoded.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the stored form of refresh and reset tokens.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
