package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/cv-generator/internal/schemas"
	"github.com/jonathan/cv-generator/internal/types"
)

// Store manages the lifecycle of CV documents on top of a Backend. Operations
// on the same id are serialized; operations on different ids run in parallel.
type Store struct {
	backend Backend
	locks   *keyedLocks
	now     func() time.Time
	newID   func() string
	logger  zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id assignment
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger used for skipped records and cleanup failures
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over backend
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		locks:   newKeyedLocks(),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidID reports whether id is a canonical lowercase UUID. Anything else can
// never name a stored document.
func ValidID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Generate persists data under a fresh id and returns the id
func (s *Store) Generate(ctx context.Context, data *types.CVData) (string, error) {
	if data == nil {
		return "", &GenerationError{Op: "generate", Message: "no data"}
	}
	data, err := data.Canonical()
	if err != nil {
		return "", err
	}

	id := s.newID()
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.timestamp()
	doc := &types.CVDocument{
		Metadata: types.CVMetadata{
			CVID:         id,
			CreatedAt:    now,
			LastModified: now,
			Version:      types.DocumentVersion,
		},
		Data: *data,
	}

	if err := s.put(ctx, "generate", doc); err != nil {
		return "", err
	}

	s.logger.Debug().Str("cv_id", id).Msg("document generated")
	return id, nil
}

// Fetch returns the stored document
func (s *Store) Fetch(ctx context.Context, id string) (*types.CVDocument, error) {
	if !ValidID(id) {
		return nil, &NotFoundError{ID: id}
	}
	unlock := s.locks.RLock(id)
	defer unlock()
	return s.get(ctx, "fetch", id)
}

// Update replaces the data of an existing document. cv_id and created_at are
// kept, last_modified never moves backwards, and derived artifacts are
// dropped because they no longer match the data.
func (s *Store) Update(ctx context.Context, id string, data *types.CVData) (*types.CVDocument, error) {
	if !ValidID(id) {
		return nil, &NotFoundError{ID: id}
	}
	if data == nil {
		return nil, &GenerationError{Op: "update", ID: id, Message: "no data"}
	}
	data, err := data.Canonical()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	existing, err := s.get(ctx, "update", id)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	if now.Before(existing.Metadata.LastModified) {
		now = existing.Metadata.LastModified
	}

	doc := &types.CVDocument{
		Metadata: types.CVMetadata{
			CVID:         id,
			CreatedAt:    existing.Metadata.CreatedAt,
			LastModified: now,
			Version:      types.DocumentVersion,
		},
		Data: *data,
	}

	if err := s.put(ctx, "update", doc); err != nil {
		return nil, err
	}

	for _, kind := range ArtifactKinds {
		if err := s.backend.DeleteArtifact(ctx, id, kind); err != nil {
			s.logger.Warn().Err(err).Str("cv_id", id).Str("artifact", string(kind)).Msg("failed to drop stale artifact")
		}
	}

	s.logger.Debug().Str("cv_id", id).Msg("document updated")
	return doc, nil
}

// Exists reports whether id names a stored document. It never fails.
func (s *Store) Exists(ctx context.Context, id string) bool {
	if !ValidID(id) {
		return false
	}
	ok, err := s.backend.Exists(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("cv_id", id).Msg("existence check failed")
		return false
	}
	return ok
}

// Delete removes the document and its artifacts
func (s *Store) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return &NotFoundError{ID: id}
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.backend.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return &GenerationError{Op: "delete", ID: id, Cause: err}
	}

	s.logger.Debug().Str("cv_id", id).Msg("document deleted")
	return nil
}

// List returns summaries of every readable document, newest first. Ties on
// created_at are ordered by id. Corrupt records are skipped and logged.
func (s *Store) List(ctx context.Context) ([]types.CVSummary, error) {
	records, err := s.backend.List(ctx)
	if err != nil {
		return nil, &GenerationError{Op: "list", Cause: err}
	}

	summaries := make([]types.CVSummary, 0, len(records))
	for _, rec := range records {
		if rec.Err != nil {
			s.logger.Warn().Err(rec.Err).Str("cv_id", rec.ID).Msg("skipping unreadable document")
			continue
		}
		doc, err := decode(rec.Data)
		if err != nil {
			s.logger.Warn().Err(err).Str("cv_id", rec.ID).Msg("skipping corrupt document")
			continue
		}
		if doc.Metadata.CVID != rec.ID {
			s.logger.Warn().Str("cv_id", rec.ID).Str("stored_id", doc.Metadata.CVID).Msg("skipping document with mismatched id")
			continue
		}
		summaries = append(summaries, doc.Summary())
	}

	SortSummaries(summaries)
	return summaries, nil
}

// SortSummaries orders summaries by created_at descending, then id ascending
func SortSummaries(summaries []types.CVSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CVID < b.CVID
	})
}

// PutArtifact stores a derived artifact for an existing document
func (s *Store) PutArtifact(ctx context.Context, id string, kind ArtifactKind, data []byte) error {
	if !ValidID(id) {
		return &NotFoundError{ID: id}
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.requireExists(ctx, "put artifact", id); err != nil {
		return err
	}
	if err := s.backend.PutArtifact(ctx, id, kind, data); err != nil {
		return &GenerationError{Op: "put artifact", ID: id, Message: string(kind), Cause: err}
	}
	return nil
}

// PublishArtifact stores an artifact rendered from the document as it was at
// basis (its last_modified). If the document has since changed or been
// deleted the artifact is stale and is discarded; published reports which.
func (s *Store) PublishArtifact(ctx context.Context, id string, kind ArtifactKind, data []byte, basis time.Time) (published bool, err error) {
	if !ValidID(id) {
		return false, &NotFoundError{ID: id}
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.get(ctx, "publish artifact", id)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			s.logger.Debug().Str("cv_id", id).Str("artifact", string(kind)).Msg("document deleted during render, discarding artifact")
			return false, nil
		}
		return false, err
	}
	if !current.Metadata.LastModified.Equal(basis) {
		s.logger.Debug().Str("cv_id", id).Str("artifact", string(kind)).Msg("document changed during render, discarding artifact")
		return false, nil
	}

	if err := s.backend.PutArtifact(ctx, id, kind, data); err != nil {
		return false, &GenerationError{Op: "publish artifact", ID: id, Message: string(kind), Cause: err}
	}
	return true, nil
}

// GetArtifact returns a stored artifact; ok is false when it has not been
// produced yet.
func (s *Store) GetArtifact(ctx context.Context, id string, kind ArtifactKind) (data []byte, ok bool, err error) {
	if !ValidID(id) {
		return nil, false, &NotFoundError{ID: id}
	}
	unlock := s.locks.RLock(id)
	defer unlock()

	data, err = s.backend.GetArtifact(ctx, id, kind)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, &GenerationError{Op: "get artifact", ID: id, Message: string(kind), Cause: err}
	}
	return data, true, nil
}

func (s *Store) requireExists(ctx context.Context, op, id string) error {
	ok, err := s.backend.Exists(ctx, id)
	if err != nil {
		return &GenerationError{Op: op, ID: id, Cause: err}
	}
	if !ok {
		return &NotFoundError{ID: id}
	}
	return nil
}

// get reads and decodes id; callers hold the id lock
func (s *Store) get(ctx context.Context, op, id string) (*types.CVDocument, error) {
	raw, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &GenerationError{Op: op, ID: id, Cause: err}
	}

	doc, err := decode(raw)
	if err != nil {
		return nil, &GenerationError{Op: op, ID: id, Message: "stored document is corrupt", Cause: err}
	}
	return doc, nil
}

// put encodes and writes doc; callers hold the id lock
func (s *Store) put(ctx context.Context, op string, doc *types.CVDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &GenerationError{Op: op, ID: doc.Metadata.CVID, Message: "failed to encode document", Cause: err}
	}
	if err := s.backend.Put(ctx, doc.Metadata.CVID, raw); err != nil {
		return &GenerationError{Op: op, ID: doc.Metadata.CVID, Cause: err}
	}
	return nil
}

// decode checks raw against the document schema before unmarshaling it
func decode(raw []byte) (*types.CVDocument, error) {
	if err := schemas.ValidateDocument(raw); err != nil {
		return nil, err
	}
	var doc types.CVDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
