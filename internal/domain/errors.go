package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrInvalidArgument is returned when a constructor or mutation receives a
	// value that breaks the task's data contract (blank title, negative
	// position, oversized description...). It is usually wrapped in an
	// *ArgumentError that names the offending field.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTransition is returned when a status change is not allowed by
	// the workflow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status name or rank is unknown.
	ErrInvalidStatus = errors.New("invalid task status")
)

// ArgumentError describes a data-contract violation on a single field.
type ArgumentError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// NewArgumentError creates an ArgumentError for the given field.
func NewArgumentError(field, message string) *ArgumentError {
	return &ArgumentError{Field: field, Message: message}
}

// TransitionError is returned by Task.MoveTo when the requested status change
// is forbidden.
type TransitionError struct {
	From TaskStatus
	To   TaskStatus
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf(
		"cannot transition from %s to %s: tasks cannot skip from %s directly to %s",
		e.From, e.To, TaskStatusToDo, TaskStatusDone,
	)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
