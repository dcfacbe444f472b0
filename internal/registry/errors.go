package registry

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateUser   = errors.New("username already exists")
	ErrWeakCredential  = errors.New("credential must be 6 to 72 characters and contain a letter, a digit and a symbol")
	ErrInvalidUsername = errors.New("username must be 3-20 letters, digits or underscores")
	ErrAuthFailure     = errors.New("invalid username or credential")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidProfile  = errors.New("invalid profile field")

	// ErrLocked is an authentication failure caused by too many attempts.
	ErrLocked = fmt.Errorf("account temporarily locked: %w", ErrAuthFailure)
)
