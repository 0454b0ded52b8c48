package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/jonathan/cv-generator/internal/parsing"
)

//go:embed pages
var pageFiles embed.FS

var formTemplate = template.Must(template.ParseFS(pageFiles, "pages/form.html"))

// formPage is the view model of form.html
type formPage struct {
	Title    string
	Action   string
	Submit   string
	ViewLink string
	Sections []formSection
}

type formSection struct {
	Title string
	Slots [][]formInput
}

type formInput struct {
	Name      string
	Label     string
	Value     string
	Multiline bool
}

// newFormPage lays out every legacy input, pre-filled from values when given
func newFormPage(title, action, submit string, values *parsing.Form) formPage {
	page := formPage{Title: title, Action: action, Submit: submit}
	for _, section := range parsing.LegacyLayout() {
		fs := formSection{Title: section.Title, Slots: make([][]formInput, 0, len(section.Slots))}
		for _, slot := range section.Slots {
			inputs := make([]formInput, 0, len(slot))
			for _, field := range slot {
				in := formInput{Name: field.Name, Label: field.Label, Multiline: field.Multiline}
				if values != nil {
					in.Value = values.Get(field.Name)
				}
				inputs = append(inputs, in)
			}
			fs.Slots = append(fs.Slots, inputs)
		}
		page.Sections = append(page.Sections, fs)
	}
	return page
}

func (s *Server) writeFormPage(w http.ResponseWriter, page formPage) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, page); err != nil {
		s.logger.Error().Err(err).Msg("failed to render form page")
		s.errorResponse(w, http.StatusInternalServerError, "failed to render form")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleHome handles GET /, the blank submission form
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeFormPage(w, newFormPage("Create your CV", "/generate", "Generate CV", nil))
}

// handleSampleForm handles GET /test, the submission form filled with sample data
func (s *Server) handleSampleForm(w http.ResponseWriter, r *http.Request) {
	sample, err := sampleForm()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load sample form, serving blank form")
	}
	s.writeFormPage(w, newFormPage("Create your CV", "/generate", "Generate CV", sample))
}

func sampleForm() (*parsing.Form, error) {
	raw, err := pageFiles.ReadFile("pages/sample_form.json")
	if err != nil {
		return nil, err
	}
	return parsing.ParseJSON(raw)
}

// handleEditForm handles GET /cv/{id}/edit, the form pre-filled with the stored data
func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, err := s.cvs.ExportForm(r.Context(), id, parsing.ShapeLegacy)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page := newFormPage("Edit your CV", "/cv/"+id, "Save changes", form)
	page.ViewLink = "/cv/" + id
	s.writeFormPage(w, page)
}
