package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/storage/storagetest"
	"github.com/jonathan/cv-generator/internal/testutil"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_Contract(t *testing.T) {
	storagetest.RunBackendContract(t, func(t *testing.T) storage.Backend {
		return openTestSQLite(t)
	})
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cv.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "00000000-0000-4000-8000-000000000001", []byte(`{}`)))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	ok, err := second.Exists(ctx, "00000000-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.True(t, ok, "data survives reopening")

	applied, err := second.migrationApplied(ctx, "001_cv_documents")
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLite_WithStore(t *testing.T) {
	ctx := context.Background()
	s := storage.New(openTestSQLite(t))

	id, err := s.Generate(ctx, testutil.ValidCVData())
	require.NoError(t, err)

	doc, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *testutil.ValidCVData(), doc.Data)

	require.NoError(t, s.PutArtifact(ctx, id, storage.ArtifactPDF, []byte("%PDF")))

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].CVID)

	require.NoError(t, s.Delete(ctx, id))
	assert.False(t, s.Exists(ctx, id))
}
