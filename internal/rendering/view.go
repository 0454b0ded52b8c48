package rendering

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jonathan/cv-generator/internal/types"
)

// Summaries may carry light inline formatting on screen; TeX output gets
// plain text only.
var (
	summaryPolicy = bluemonday.UGCPolicy()
	plainPolicy   = bluemonday.StrictPolicy()
)

// View is the data tree every CV template is executed with
type View struct {
	ID string
	CV *types.CVData
	// Summary is the sanitized summary for HTML templates
	Summary template.HTML
	// PlainSummary is the summary with all markup removed
	PlainSummary string
}

// NewView builds the template data for a CV. id may be empty for documents
// that were never stored.
func NewView(id string, d *types.CVData) *View {
	v := &View{ID: id, CV: d}
	if s := strings.TrimSpace(d.Summary); s != "" {
		v.Summary = template.HTML(summaryPolicy.Sanitize(s))
		v.PlainSummary = strings.TrimSpace(plainPolicy.Sanitize(s))
	}
	return v
}

// downloadButton is the data for the download button partial
type downloadButton struct {
	Href     string
	Filename string
}
