package model

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")

	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountLocked          = errors.New("account is temporarily locked")
	ErrAccountInactive        = errors.New("account is deactivated")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")

	ErrAlreadyVerified         = errors.New("email is already verified")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	ErrInvalidResetToken       = errors.New("invalid or expired reset token")
)
