package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession means no login is stored locally.
	ErrNoSession = errors.New("no active session, log in first")

	// ErrSessionInvalid means the backend rejected the stored token.
	ErrSessionInvalid = errors.New("session is no longer valid, log in again")

	// ErrInvalidCredentials means the backend rejected email and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports bad user input before anything is sent.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Error wraps a failed operation with a message meant for the user.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
