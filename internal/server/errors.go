package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/types"
)

// ErrBadRequest indicates a request that could not be read at all
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return "bad request: " + e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *types.ValidationError
		notFoundErr   *storage.NotFoundError
		rasterErr     *rendering.RasterizationError
		parseErr      *parsing.ParseError
		badRequestErr *ErrBadRequest
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &parseErr), errors.As(err, &badRequestErr):
		return http.StatusBadRequest
	case errors.As(err, &rasterErr):
		if rasterErr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		// GenerationError, RenderError, TemplateError
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error      string            `json:"error"`
	Violations []types.Violation `json:"violations,omitempty"`
}

func newErrorBody(err error) errorBody {
	body := errorBody{Error: err.Error()}
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		body.Error = "validation failed"
		body.Violations = validationErr.Violations
	}
	return body
}
