package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/storage/storagetest"
)

func newFSBackend(t *testing.T) *storage.FSBackend {
	t.Helper()
	b, err := storage.NewFSBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestFSBackend_Contract(t *testing.T) {
	storagetest.RunBackendContract(t, func(t *testing.T) storage.Backend {
		return newFSBackend(t)
	})
}

func TestFSBackend_FileLayout(t *testing.T) {
	ctx := context.Background()
	b := newFSBackend(t)
	id := uuid.NewString()

	require.NoError(t, b.Put(ctx, id, []byte(`{}`)))
	require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactScreen, []byte("a")))
	require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactDisplay, []byte("b")))
	require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactPDF, []byte("c")))

	for _, name := range []string{id + "_data.json", id + ".html", id + "_display.html", id + ".pdf"} {
		_, err := os.Stat(filepath.Join(b.Dir(), name))
		assert.NoError(t, err, name)
	}

	entries, err := os.ReadDir(b.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files left behind")
}

func TestFSBackend_ListIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	b := newFSBackend(t)
	id := uuid.NewString()
	require.NoError(t, b.Put(ctx, id, []byte(`{}`)))

	require.NoError(t, os.WriteFile(filepath.Join(b.Dir(), "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(b.Dir(), ".x_data.json.tmp-1"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(b.Dir(), "sub_data.json"), 0755))

	records, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
}

func TestFSBackend_UnknownArtifactKind(t *testing.T) {
	b := newFSBackend(t)
	err := b.PutArtifact(context.Background(), uuid.NewString(), storage.ArtifactKind("docx"), []byte("x"))
	assert.Error(t, err)
	assert.False(t, storage.ArtifactKind("docx").Valid())
	assert.True(t, storage.ArtifactPDF.Valid())
}

func TestNewFSBackend_EmptyDir(t *testing.T) {
	_, err := storage.NewFSBackend("", zerolog.Nop())
	assert.Error(t, err)
}
