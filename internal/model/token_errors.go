package model

import "errors"

var (
	ErrTokenMissing  = errors.New("token not provided")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenMismatch = errors.New("refresh token mismatch")
)
