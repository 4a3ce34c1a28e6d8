package service

import (
	"errors"
	"strings"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrResetTokenInvalid covers unknown, expired and already used reset tokens.
var ErrResetTokenInvalid = errors.New("invalid or expired reset token")

// ValidationError carries field-level messages in display form, for
// example "Email has already been taken".
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Messages, "; ") }

func newValidationError(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Messages: msgs}
}
