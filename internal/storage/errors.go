package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by backends when a record or artifact is absent
var ErrNotFound = errors.New("not found")

// NotFoundError indicates that no document exists for ID
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cv not found: %s", e.ID)
}

// GenerationError wraps any storage failure other than a missing document
type GenerationError struct {
	Op      string
	ID      string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("generation error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("generation error: %s", msg)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
