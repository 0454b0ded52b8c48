// Package service exposes CV submission, retrieval and rendering as one API
// shared by the HTTP server and the CLI.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/types"
)

// DocumentStore is the persistence the service needs; *storage.Store implements it
type DocumentStore interface {
	Generate(ctx context.Context, data *types.CVData) (string, error)
	Fetch(ctx context.Context, id string) (*types.CVDocument, error)
	Update(ctx context.Context, id string, data *types.CVData) (*types.CVDocument, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) bool
	List(ctx context.Context) ([]types.CVSummary, error)
	PublishArtifact(ctx context.Context, id string, kind storage.ArtifactKind, data []byte, basis time.Time) (bool, error)
	GetArtifact(ctx context.Context, id string, kind storage.ArtifactKind) ([]byte, bool, error)
}

// Renderer produces markup and PDFs; *rendering.Coordinator implements it
type Renderer interface {
	Render(id string, mode rendering.Mode, d *types.CVData) (string, error)
	Rasterize(ctx context.Context, d *types.CVData) (*rendering.Document, error)
}

var (
	_ DocumentStore = (*storage.Store)(nil)
	_ Renderer      = (*rendering.Coordinator)(nil)
)

// markupArtifacts are the cached markup modes and where each is kept
var markupArtifacts = map[rendering.Mode]storage.ArtifactKind{
	rendering.ModeScreen:  storage.ArtifactScreen,
	rendering.ModeDisplay: storage.ArtifactDisplay,
}

// CVService provides business logic for CV documents
type CVService struct {
	store    DocumentStore
	renderer Renderer
	logger   zerolog.Logger
	pdfs     singleflight.Group
}

// Option configures a CVService
type Option func(*CVService)

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *CVService) { s.logger = logger }
}

// New creates a new CVService with the given dependencies
func New(store DocumentStore, renderer Renderer, opts ...Option) *CVService {
	s := &CVService{
		store:    store,
		renderer: renderer,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitForm validates a submitted form, stores it as a new document and
// returns the new id. Markup artifacts are rendered before returning; a
// failure there is logged and the markup is rebuilt on first read.
func (s *CVService) SubmitForm(ctx context.Context, form *parsing.Form) (string, error) {
	data, err := parsing.Normalize(form)
	if err != nil {
		return "", err
	}
	id, err := s.store.Generate(ctx, data)
	if err != nil {
		return "", err
	}
	if doc, err := s.store.Fetch(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("cv_id", id).Msg("could not re-read new document for rendering")
	} else {
		s.renderMarkup(ctx, doc)
	}
	s.logger.Info().Str("cv_id", id).Msg("CV generated")
	return id, nil
}

// GetDocument returns a stored document
func (s *CVService) GetDocument(ctx context.Context, id string) (*types.CVDocument, error) {
	return s.store.Fetch(ctx, id)
}

// UpdateDocument re-validates a submitted form and replaces the data of id
func (s *CVService) UpdateDocument(ctx context.Context, id string, form *parsing.Form) (*types.CVDocument, error) {
	data, err := parsing.Normalize(form)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Update(ctx, id, data)
	if err != nil {
		return nil, err
	}
	s.renderMarkup(ctx, doc)
	s.logger.Info().Str("cv_id", id).Msg("CV updated")
	return doc, nil
}

// DeleteDocument removes a document and its artifacts
func (s *CVService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("cv_id", id).Msg("CV deleted")
	return nil
}

// ListDocuments returns summaries of every stored document, newest first
func (s *CVService) ListDocuments(ctx context.Context) ([]types.CVSummary, error) {
	return s.store.List(ctx)
}

// Exists reports whether id names a stored document
func (s *CVService) Exists(ctx context.Context, id string) bool {
	return s.store.Exists(ctx, id)
}

// GetRenderedMarkup returns the markup of id in mode. Screen and display
// markup come from the artifact cache when present.
func (s *CVService) GetRenderedMarkup(ctx context.Context, id string, mode rendering.Mode) (string, error) {
	kind, cached := markupArtifacts[mode]
	if cached {
		data, ok, err := s.store.GetArtifact(ctx, id, kind)
		if err != nil {
			return "", err
		}
		if ok {
			return string(data), nil
		}
	}

	doc, err := s.store.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	markup, err := s.renderer.Render(id, mode, &doc.Data)
	if err != nil {
		return "", err
	}
	if cached {
		s.publish(ctx, doc, kind, []byte(markup))
	}
	return markup, nil
}

// GetRasterizedDocument returns the PDF of id, rasterizing it when no cached
// copy exists. Concurrent requests for the same document version share one
// rasterization, which runs on a snapshot without holding any store lock.
func (s *CVService) GetRasterizedDocument(ctx context.Context, id string) (*rendering.Document, error) {
	doc, err := s.store.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	filename := rendering.PDFFilename(&doc.Data)

	data, ok, err := s.store.GetArtifact(ctx, id, storage.ArtifactPDF)
	if err != nil {
		return nil, err
	}
	if ok {
		return &rendering.Document{Filename: filename, ContentType: "application/pdf", Bytes: data}, nil
	}

	key := id + "@" + doc.Metadata.LastModified.Format(time.RFC3339Nano)
	// joined callers must not fail because the first one went away
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.pdfs.Do(key, func() (any, error) {
		start := time.Now()
		out, err := s.renderer.Rasterize(flightCtx, &doc.Data)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("cv_id", id).Int("bytes", len(out.Bytes)).Dur("duration", time.Since(start)).Msg("PDF rasterized")
		s.publish(flightCtx, doc, storage.ArtifactPDF, out.Bytes)
		return out, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("cv_id", id).Msg("PDF rasterization failed")
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("cv_id", id).Msg("joined in-flight rasterization")
	}
	out := *v.(*rendering.Document)
	return &out, nil
}

// ExportForm returns the stored data of id as form fields in shape
func (s *CVService) ExportForm(ctx context.Context, id string, shape parsing.Shape) (*parsing.Form, error) {
	doc, err := s.store.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return parsing.Export(&doc.Data, shape), nil
}

// PreviewPDF rasterizes a submitted form without storing anything
func (s *CVService) PreviewPDF(ctx context.Context, form *parsing.Form) (*rendering.Document, error) {
	data, err := parsing.Normalize(form)
	if err != nil {
		return nil, err
	}
	return s.renderer.Rasterize(ctx, data)
}

// renderMarkup renders and stores the cached markup modes of doc concurrently
func (s *CVService) renderMarkup(ctx context.Context, doc *types.CVDocument) {
	id := doc.Metadata.CVID
	modes := []rendering.Mode{rendering.ModeScreen, rendering.ModeDisplay}
	results := make([][]byte, len(modes))

	var g errgroup.Group
	for i, mode := range modes {
		g.Go(func() error {
			markup, err := s.renderer.Render(id, mode, &doc.Data)
			if err != nil {
				return err
			}
			results[i] = []byte(markup)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("cv_id", id).Msg("markup render failed, will render on read")
		return
	}
	for i, mode := range modes {
		s.publish(ctx, doc, markupArtifacts[mode], results[i])
	}
}

// publish stores an artifact rendered from doc; stale or failed writes are
// logged and otherwise ignored since artifacts can always be rebuilt.
func (s *CVService) publish(ctx context.Context, doc *types.CVDocument, kind storage.ArtifactKind, data []byte) {
	id := doc.Metadata.CVID
	ok, err := s.store.PublishArtifact(ctx, id, kind, data, doc.Metadata.LastModified)
	if err != nil {
		s.logger.Warn().Err(err).Str("cv_id", id).Str("artifact", string(kind)).Msg("failed to store artifact")
		return
	}
	if !ok {
		s.logger.Debug().Str("cv_id", id).Str("artifact", string(kind)).Msg("artifact was stale, not stored")
	}
}
