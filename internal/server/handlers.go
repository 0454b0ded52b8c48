package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/types"
)

// maxFormBytes caps submitted form bodies
const maxFormBytes = 1 << 20

// GenerateResponse is the JSON answer to a form submission
type GenerateResponse struct {
	CVID        string `json:"cv_id"`
	RedirectURL string `json:"redirect_url"`
	Message     string `json:"message"`
}

// ListResponse is the JSON answer to GET /api/v1/cvs
type ListResponse struct {
	CVs   []types.CVSummary `json:"cvs"`
	Total int               `json:"total"`
}

// FormResponse is the JSON answer to GET /api/v1/cv/{id}/form
type FormResponse struct {
	CVID   string          `json:"cv_id"`
	Shape  string          `json:"shape"`
	Fields []parsing.Field `json:"fields"`
}

// readForm decodes the request body according to its content type
func readForm(r *http.Request) (*parsing.Form, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/x-www-form-urlencoded"
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			return nil, &ErrBadRequest{Message: fmt.Sprintf("invalid multipart body: %v", err)}
		}
		return parsing.FromValues(r.MultipartForm.Value), nil
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, &ErrBadRequest{Message: fmt.Sprintf("failed to read body: %v", err)}
		}
		return parsing.ParseJSON(body)
	case "application/x-www-form-urlencoded", "text/plain":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, &ErrBadRequest{Message: fmt.Sprintf("failed to read body: %v", err)}
		}
		return parsing.ParseURLEncoded(string(body))
	default:
		return nil, &ErrBadRequest{Message: "unsupported content type " + mediaType}
	}
}

// wantsJSON reports whether the client asked for a JSON answer
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// handleGenerate handles POST /generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := readForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	id, err := s.cvs.SubmitForm(r.Context(), form)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	location := "/cv/" + id
	if wantsJSON(r) {
		w.Header().Set("Location", location)
		s.jsonResponse(w, http.StatusCreated, GenerateResponse{
			CVID:        id,
			RedirectURL: location,
			Message:     "CV generated successfully",
		})
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// handleDisplay handles GET /cv/{id}
func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	s.writeMarkup(w, r, r.PathValue("id"), rendering.ModeDisplay)
}

// handleMarkup handles GET /cv/{id}/html?mode=screen|print|latex
func (s *Server) handleMarkup(w http.ResponseWriter, r *http.Request) {
	mode, err := rendering.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.handleError(w, r, &ErrBadRequest{Message: err.Error()})
		return
	}
	s.writeMarkup(w, r, r.PathValue("id"), mode)
}

func (s *Server) writeMarkup(w http.ResponseWriter, r *http.Request, id string, mode rendering.Mode) {
	markup, err := s.cvs.GetRenderedMarkup(r.Context(), id, mode)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mode.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, markup)
}

// handlePDF handles GET /cv/{id}/pdf
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.cvs.GetRasterizedDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

// handlePreviewPDF handles POST /preview/pdf: rasterize a form without storing it
func (s *Server) handlePreviewPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := readForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := s.cvs.PreviewPDF(r.Context(), form)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func writeDocument(w http.ResponseWriter, doc *rendering.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}

// handleUpdateForm handles POST /cv/{id}, submitted by the page at /cv/{id}/edit
func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := readForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := s.cvs.UpdateDocument(r.Context(), id, form)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if wantsJSON(r) {
		s.jsonResponse(w, http.StatusOK, doc)
		return
	}
	http.Redirect(w, r, "/cv/"+id, http.StatusSeeOther)
}

// handleListCVs handles GET /api/v1/cvs
func (s *Server) handleListCVs(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.cvs.ListDocuments(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []types.CVSummary{}
	}
	s.jsonResponse(w, http.StatusOK, ListResponse{CVs: summaries, Total: len(summaries)})
}

// handleGetCV handles GET /api/v1/cv/{id}
func (s *Server) handleGetCV(w http.ResponseWriter, r *http.Request) {
	doc, err := s.cvs.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleUpdateCV handles PUT /api/v1/cv/{id}
func (s *Server) handleUpdateCV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := readForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := s.cvs.UpdateDocument(r.Context(), r.PathValue("id"), form)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleDeleteCV handles DELETE /api/v1/cv/{id}
func (s *Server) handleDeleteCV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.cvs.DeleteDocument(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "CV " + id + " deleted"})
}

// handleExportForm handles GET /api/v1/cv/{id}/form?shape=legacy|dynamic
func (s *Server) handleExportForm(w http.ResponseWriter, r *http.Request) {
	shape, ok := parsing.ParseShape(r.URL.Query().Get("shape"))
	if !ok {
		s.handleError(w, r, &ErrBadRequest{Message: "unknown form shape " + r.URL.Query().Get("shape")})
		return
	}
	id := r.PathValue("id")
	form, err := s.cvs.ExportForm(r.Context(), id, shape)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, FormResponse{CVID: id, Shape: shape.String(), Fields: form.Fields()})
}
