package rendering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/cv-generator/internal/types"
)

// Document is a rasterized CV ready to be served or written out
type Document struct {
	Filename    string
	ContentType string
	Bytes       []byte
}

// Coordinator picks the template for each output mode and drives the
// rasterizer. It holds no per-document state.
type Coordinator struct {
	engine     Engine
	rasterizer Rasterizer
}

// NewCoordinator creates a Coordinator. rasterizer may be nil when only
// markup is needed.
func NewCoordinator(engine Engine, rasterizer Rasterizer) *Coordinator {
	return &Coordinator{engine: engine, rasterizer: rasterizer}
}

// PDFHref is the download link a display page points at
func PDFHref(id string) string {
	return "/cv/" + id + "/pdf"
}

// PDFFilename is the suggested download name for a CV
func PDFFilename(d *types.CVData) string {
	return SuggestedFilename(d.PersonalInfo.FullName) + ".pdf"
}

// Markup renders d in mode. ModeDisplay needs the document id, use DisplayPage.
func (c *Coordinator) Markup(mode Mode, d *types.CVData) (string, error) {
	if d == nil {
		return "", &RenderError{Message: "no CV data to render"}
	}
	if mode == ModeDisplay {
		return "", &RenderError{Message: "display pages are rendered with DisplayPage"}
	}
	return c.engine.Render(mode.TemplateName(), NewView("", d))
}

// DisplayPage renders the screen page for a stored CV and injects a PDF
// download button at the start of <body>.
func (c *Coordinator) DisplayPage(id string, d *types.CVData) (string, error) {
	if d == nil {
		return "", &RenderError{Message: "no CV data to render"}
	}
	screen, err := c.engine.Render(TemplateScreen, NewView(id, d))
	if err != nil {
		return "", err
	}
	button, err := c.engine.Render(TemplateDownloadButton, downloadButton{
		Href:     PDFHref(id),
		Filename: PDFFilename(d),
	})
	if err != nil {
		return "", err
	}
	return injectIntoBody(screen, button)
}

// injectIntoBody prepends fragment to the body of page
func injectIntoBody(page, fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", &RenderError{Message: "failed to parse rendered page", Cause: err}
	}
	doc.Find("body").First().PrependHtml(fragment)
	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", &RenderError{Message: "failed to serialize display page", Cause: err}
	}
	return out, nil
}

// Render dispatches on mode, including ModeDisplay
func (c *Coordinator) Render(id string, mode Mode, d *types.CVData) (string, error) {
	if mode == ModeDisplay {
		return c.DisplayPage(id, d)
	}
	return c.Markup(mode, d)
}

// RasterMode reports the markup mode the configured rasterizer consumes
func (c *Coordinator) RasterMode() Mode {
	if c.rasterizer == nil {
		return ModePrint
	}
	return c.rasterizer.Mode()
}

// Rasterize renders d in the rasterizer's mode and converts it to PDF
func (c *Coordinator) Rasterize(ctx context.Context, d *types.CVData) (*Document, error) {
	if c.rasterizer == nil {
		return nil, &RasterizationError{Message: "no rasterizer configured"}
	}
	markup, err := c.Markup(c.rasterizer.Mode(), d)
	if err != nil {
		return nil, err
	}
	pdf, err := c.rasterizer.Rasterize(ctx, markup)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    PDFFilename(d),
		ContentType: "application/pdf",
		Bytes:       pdf,
	}, nil
}

// NewRasterizer builds the rasterizer named by configuration: "chrome"
// (the default) or "latex". path overrides the binary for either.
func NewRasterizer(name, path string, timeout time.Duration) (Rasterizer, error) {
	switch name {
	case "", "chrome":
		return NewChromeRasterizer(path, timeout), nil
	case "latex":
		return NewLaTeXRasterizer(path, timeout), nil
	}
	return nil, fmt.Errorf("unknown rasterizer %q (want chrome or latex)", name)
}
