package rendering

import (
	"context"
	"errors"
	"time"
)

// DefaultRasterizeTimeout bounds a single rasterization
const DefaultRasterizeTimeout = 60 * time.Second

// Rasterizer converts markup into a paginated PDF
type Rasterizer interface {
	// Mode is the markup mode the rasterizer consumes
	Mode() Mode
	Rasterize(ctx context.Context, markup string) ([]byte, error)
}

// rasterizeFailure wraps err, marking it as a timeout when the deadline of
// ctx is what ended the run.
func rasterizeFailure(ctx context.Context, msg string, err error) *RasterizationError {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &RasterizationError{Message: msg, Timeout: timeout, Cause: err}
}
