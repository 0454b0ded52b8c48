// Package rendering turns validated CV data into markup and paginated documents.
package rendering

import "fmt"

// TemplateError represents an error loading or parsing a template set
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a failure expanding a template for a document
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// RasterizationError represents a failure converting markup into a binary
// document. Timeout is set when the rasterizer ran out of time.
type RasterizationError struct {
	Message string
	Timeout bool
	Cause   error
}

func (e *RasterizationError) Error() string {
	msg := e.Message
	if e.Timeout {
		msg += " (timed out)"
	}
	if e.Cause != nil {
		return fmt.Sprintf("rasterization error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("rasterization error: %s", msg)
}

func (e *RasterizationError) Unwrap() error {
	return e.Cause
}
