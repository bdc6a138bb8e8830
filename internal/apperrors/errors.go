package apperrors

import (
	"errors"
)

var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrUserNotFound = errors.New("user not found")

	// Single error for both unknown email and wrong password.
	// Never split it: distinct errors allow account enumeration
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")

	ErrUploadsDisabled = errors.New("media uploads are not configured")
)
