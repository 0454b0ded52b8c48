// Package storage persists CV documents and their rendered artifacts.
package storage

import "context"

// ArtifactKind names a derived output stored next to a document
type ArtifactKind string

const (
	// ArtifactScreen is the interactive HTML rendering
	ArtifactScreen ArtifactKind = "screen"
	// ArtifactDisplay is the screen rendering with the download control injected
	ArtifactDisplay ArtifactKind = "display"
	// ArtifactPDF is the cached rasterized document
	ArtifactPDF ArtifactKind = "pdf"
)

// ArtifactKinds lists every kind a backend must be able to store
var ArtifactKinds = []ArtifactKind{ArtifactScreen, ArtifactDisplay, ArtifactPDF}

// Valid reports whether k is a known kind
func (k ArtifactKind) Valid() bool {
	for _, known := range ArtifactKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Record is one stored document as returned by Backend.List. Err is set when
// the record exists but could not be read.
type Record struct {
	ID   string
	Data []byte
	Err  error
}

// Backend is the capability set a document store needs from persistence.
// Missing records and artifacts are reported as ErrNotFound. Every write must
// be atomic: a reader sees either the old or the new content.
type Backend interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	// Delete removes the record and all of its artifacts
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Record, error)
	Exists(ctx context.Context, id string) (bool, error)

	PutArtifact(ctx context.Context, id string, kind ArtifactKind, data []byte) error
	GetArtifact(ctx context.Context, id string, kind ArtifactKind) ([]byte, error)
	// DeleteArtifact is a no-op when the artifact is absent
	DeleteArtifact(ctx context.Context, id string, kind ArtifactKind) error
}
