package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure classes the board surfaces
// inline. Repository and auth failures wrap these so callers can classify
// with errors.Is.
var (
	ErrEmptyTitle    = &ValidationError{Field: "title", Message: "title cannot be empty"}
	ErrInvalidDate   = &ValidationError{Field: "deadline", Message: "invalid deadline date"}
	ErrChecklistFull = &ValidationError{Field: "checklist", Message: fmt.Sprintf("checklist is limited to %d items", MaxChecklistItems)}

	ErrNotFound = errors.New("task not found")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PersistenceError wraps a store failure. The operation did not corrupt
// local state; the caller reverts to last known good and shows the message.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
