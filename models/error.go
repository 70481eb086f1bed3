package models

import (
	"fmt"
	"strings"
)

// ValidationError is returned for malformed or out-of-range input. Fields holds
// one human-readable message per offending field.
type ValidationError struct {
	Fields []string
}

// NewValidationError builds a ValidationError from the given messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Fields: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// NotFoundError is returned when a referenced document, or a slot inside one,
// does not exist
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFoundError formats a NotFoundError message
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a unique field such as an email or a
// medication name is already taken
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StaleRevisionError is returned when a treatment was modified by someone else
// between our read and our write
type StaleRevisionError struct {
	ID string
}

func (e *StaleRevisionError) Error() string {
	return fmt.Sprintf("treatment %s was modified concurrently, reload and retry", e.ID)
}
