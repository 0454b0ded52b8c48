package rendering

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// LaTeXRasterizer compiles TeX source with pdflatex in a scratch directory
type LaTeXRasterizer struct {
	// Command is the pdflatex binary; empty means "pdflatex" from PATH
	Command string
	Timeout time.Duration
}

var _ Rasterizer = (*LaTeXRasterizer)(nil)

// NewLaTeXRasterizer creates a rasterizer; a zero timeout means DefaultRasterizeTimeout
func NewLaTeXRasterizer(command string, timeout time.Duration) *LaTeXRasterizer {
	if command == "" {
		command = "pdflatex"
	}
	if timeout <= 0 {
		timeout = DefaultRasterizeTimeout
	}
	return &LaTeXRasterizer{Command: command, Timeout: timeout}
}

// Mode implements Rasterizer
func (r *LaTeXRasterizer) Mode() Mode { return ModeLaTeX }

// Rasterize writes markup to cv.tex, compiles it and returns cv.pdf.
// The scratch directory is always removed.
func (r *LaTeXRasterizer) Rasterize(ctx context.Context, markup string) ([]byte, error) {
	command := r.Command
	if command == "" {
		command = "pdflatex"
	}
	bin, err := exec.LookPath(command)
	if err != nil {
		return nil, &RasterizationError{
			Message: fmt.Sprintf("%s not found in PATH. Please install a LaTeX distribution (e.g., TeX Live)", command),
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "cv-latex-*")
	if err != nil {
		return nil, &RasterizationError{Message: "failed to create working directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	texPath := filepath.Join(workDir, "cv.tex")
	if err := os.WriteFile(texPath, []byte(markup), 0600); err != nil {
		return nil, &RasterizationError{Message: "failed to write LaTeX source", Cause: err}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRasterizeTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// nonstopmode keeps pdflatex from waiting on stdin after an error
	cmd := exec.CommandContext(runCtx, bin, "-interaction=nonstopmode", "-halt-on-error", "-output-directory", workDir, texPath)
	cmd.Dir = workDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return nil, rasterizeFailure(runCtx, "pdflatex did not finish", runCtx.Err())
		}
		return nil, &RasterizationError{
			Message: "LaTeX compilation failed: " + lastLines(output.String(), 5),
			Cause:   err,
		}
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, "cv.pdf"))
	if err != nil {
		return nil, &RasterizationError{Message: "LaTeX compilation failed: PDF was not generated", Cause: err}
	}
	return pdf, nil
}

// lastLines returns the final n non-empty lines of s joined by " | "
func lastLines(s string, n int) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	var kept [][]byte
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			kept = append([][]byte{l}, kept...)
		}
	}
	return string(bytes.Join(kept, []byte(" | ")))
}
