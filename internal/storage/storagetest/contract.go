// Package storagetest holds the behavioral contract every storage backend
// must satisfy, shared by the filesystem and SQL backend tests.
package storagetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-generator/internal/storage"
)

// Factory returns an empty backend for one subtest
type Factory func(t *testing.T) storage.Backend

// RunBackendContract exercises b through the storage.Backend interface
func RunBackendContract(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("put get exists", func(t *testing.T) {
		b := newBackend(t)
		id := uuid.NewString()

		ok, err := b.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = b.Get(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, b.Put(ctx, id, []byte(`{"n": 1}`)))
		ok, err = b.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"n": 1}`, string(got))

		require.NoError(t, b.Put(ctx, id, []byte(`{"n": 2}`)))
		got, err = b.Get(ctx, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"n": 2}`, string(got), "put overwrites")
	})

	t.Run("list", func(t *testing.T) {
		b := newBackend(t)
		records, err := b.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
		for _, id := range ids {
			require.NoError(t, b.Put(ctx, id, []byte(`{"id": "`+id+`"}`)))
		}

		records, err = b.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, len(ids))

		listed := make([]string, 0, len(records))
		for _, rec := range records {
			require.NoError(t, rec.Err)
			assert.JSONEq(t, `{"id": "`+rec.ID+`"}`, string(rec.Data))
			listed = append(listed, rec.ID)
		}
		assert.ElementsMatch(t, ids, listed)
	})

	t.Run("artifacts", func(t *testing.T) {
		b := newBackend(t)
		id := uuid.NewString()
		require.NoError(t, b.Put(ctx, id, []byte(`{}`)))

		_, err := b.GetArtifact(ctx, id, storage.ArtifactPDF)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactPDF, []byte("%PDF-1.4 one")))
		require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactPDF, []byte("%PDF-1.4 two")))
		require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactScreen, []byte("<html></html>")))

		got, err := b.GetArtifact(ctx, id, storage.ArtifactPDF)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 two", string(got))

		require.NoError(t, b.DeleteArtifact(ctx, id, storage.ArtifactPDF))
		require.NoError(t, b.DeleteArtifact(ctx, id, storage.ArtifactPDF), "deleting twice is a no-op")
		_, err = b.GetArtifact(ctx, id, storage.ArtifactPDF)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err = b.GetArtifact(ctx, id, storage.ArtifactScreen)
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(got))
	})

	t.Run("delete removes record and artifacts", func(t *testing.T) {
		b := newBackend(t)
		id := uuid.NewString()
		require.NoError(t, b.Put(ctx, id, []byte(`{}`)))
		require.NoError(t, b.PutArtifact(ctx, id, storage.ArtifactDisplay, []byte("<html>")))

		require.NoError(t, b.Delete(ctx, id))

		ok, err := b.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = b.GetArtifact(ctx, id, storage.ArtifactDisplay)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, b.Delete(ctx, id), storage.ErrNotFound)
	})
}
