package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const recordSuffix = "_data.json"

// artifactSuffix maps kinds onto the file names used in the data directory
var artifactSuffix = map[ArtifactKind]string{
	ArtifactScreen:  ".html",
	ArtifactDisplay: "_display.html",
	ArtifactPDF:     ".pdf",
}

// FSBackend stores each document as <id>_data.json in a single directory,
// with artifacts alongside as <id>.html, <id>_display.html and <id>.pdf.
type FSBackend struct {
	dir    string
	logger zerolog.Logger
}

// NewFSBackend creates dir if needed and returns a backend rooted there
func NewFSBackend(dir string, logger zerolog.Logger) (*FSBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FSBackend{dir: dir, logger: logger}, nil
}

// Dir returns the data directory
func (b *FSBackend) Dir() string {
	return b.dir
}

func (b *FSBackend) recordPath(id string) string {
	return filepath.Join(b.dir, id+recordSuffix)
}

func (b *FSBackend) artifactPath(id string, kind ArtifactKind) (string, error) {
	suffix, ok := artifactSuffix[kind]
	if !ok {
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
	return filepath.Join(b.dir, id+suffix), nil
}

// Put writes the record atomically
func (b *FSBackend) Put(_ context.Context, id string, data []byte) error {
	return writeFileAtomic(b.recordPath(id), data)
}

// Get reads the record
func (b *FSBackend) Get(_ context.Context, id string) ([]byte, error) {
	return readFile(b.recordPath(id))
}

// Delete removes the record first, then every artifact. Artifact removal is
// best effort: failures are logged, the document is gone either way.
func (b *FSBackend) Delete(_ context.Context, id string) error {
	if err := os.Remove(b.recordPath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}

	for _, kind := range ArtifactKinds {
		path, _ := b.artifactPath(id, kind)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn().Err(err).Str("cv_id", id).Str("artifact", string(kind)).Msg("failed to remove artifact")
		}
	}
	return nil
}

// List reads every record in the directory. Unreadable records are returned
// with Err set so the caller can decide how to report them.
func (b *FSBackend) List(_ context.Context) ([]Record, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", b.dir, err)
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, recordSuffix)
		data, err := os.ReadFile(filepath.Join(b.dir, name))
		records = append(records, Record{ID: id, Data: data, Err: err})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Exists reports whether the record file is present
func (b *FSBackend) Exists(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(b.recordPath(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// PutArtifact writes an artifact atomically
func (b *FSBackend) PutArtifact(_ context.Context, id string, kind ArtifactKind, data []byte) error {
	path, err := b.artifactPath(id, kind)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// GetArtifact reads an artifact
func (b *FSBackend) GetArtifact(_ context.Context, id string, kind ArtifactKind) ([]byte, error) {
	path, err := b.artifactPath(id, kind)
	if err != nil {
		return nil, err
	}
	return readFile(path)
}

// DeleteArtifact removes an artifact if present
func (b *FSBackend) DeleteArtifact(_ context.Context, id string, kind ArtifactKind) error {
	path, err := b.artifactPath(id, kind)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", base, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write %s: %w", base, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync %s: %w", base, err))
	}
	if err := tmp.Chmod(0644); err != nil {
		return cleanup(fmt.Errorf("failed to chmod %s: %w", base, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", base, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish %s: %w", base, err)
	}
	return nil
}
