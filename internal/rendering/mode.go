package rendering

import "fmt"

// Mode selects which markup a CV is rendered to
type Mode string

const (
	// ModeScreen is the interactive page shown in a browser
	ModeScreen Mode = "screen"
	// ModeDisplay is the screen page with a PDF download button
	ModeDisplay Mode = "display"
	// ModePrint is the page handed to the browser rasterizer
	ModePrint Mode = "print"
	// ModeLaTeX is the TeX source handed to pdflatex
	ModeLaTeX Mode = "latex"
)

// Template names, relative to the template directory
const (
	TemplateScreen         = "cv.html"
	TemplatePrint          = "cv_print.html"
	TemplateLaTeX          = "cv.tex"
	TemplateDownloadButton = "download_button.html"
)

// ParseMode parses a mode name. An empty name means ModeScreen.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeScreen, nil
	case ModeScreen, ModeDisplay, ModePrint, ModeLaTeX:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown render mode %q (want screen, display, print or latex)", s)
}

// TemplateName returns the template that produces markup for m.
// Display pages are built from the screen template.
func (m Mode) TemplateName() string {
	switch m {
	case ModePrint:
		return TemplatePrint
	case ModeLaTeX:
		return TemplateLaTeX
	default:
		return TemplateScreen
	}
}

// ContentType returns the media type of markup rendered in m
func (m Mode) ContentType() string {
	if m == ModeLaTeX {
		return "application/x-tex; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}
