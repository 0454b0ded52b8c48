// Package types provides type definitions for structured data used throughout the cv-generator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Violation represents a single failed constraint on an input field
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated constraint of a rejected input, not just the first
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s: %s", e.Violations[0].Field, e.Violations[0].Message)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d violations:\n", len(e.Violations)))
	for i, v := range e.Violations {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, v.Field, v.Message))
	}
	return sb.String()
}

// Add records a violation for field
func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

// Merge appends the violations of err under prefix. Errors that are not
// *ValidationError are recorded as a single violation on prefix.
func (e *ValidationError) Merge(prefix string, err error) {
	if err == nil {
		return
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		e.Add(prefix, err.Error())
		return
	}
	for _, v := range ve.Violations {
		e.Add(joinField(prefix, v.Field), v.Message)
	}
}

// HasViolations reports whether any violation has been recorded
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

// ErrOrNil returns e when it holds violations and nil otherwise
func (e *ValidationError) ErrOrNil() error {
	if e.HasViolations() {
		return e
	}
	return nil
}

// Fields returns the distinct field paths that carry violations, in report order
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(e.Violations))
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if !seen[v.Field] {
			seen[v.Field] = true
			fields = append(fields, v.Field)
		}
	}
	return fields
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	case strings.HasPrefix(field, "["):
		return prefix + field
	default:
		return prefix + "." + field
	}
}
