// Package service implements the QIC Life business operations on top of the repositories.
package service

import (
	"errors" // Error inspection
	"fmt"    // String formatting
)

// Error kinds; the API layer maps them to HTTP statuses with errors.Is
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLocked            = errors.New("locked")
)

// Error is a business error with a user facing message
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func notFound(what string) error {
	return newError(ErrNotFound, "%s not found", what)
}

// LockedError reports a mission gated behind a level
type LockedError struct {
	MissionID     string
	RequiredLevel int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("mission %s unlocks at level %d", e.MissionID, e.RequiredLevel)
}

func (e *LockedError) Unwrap() error { return ErrLocked }
