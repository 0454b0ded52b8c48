// Package db provides SQL storage backends for CV documents: PostgreSQL via
// pgx and an embedded SQLite database.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/cv-generator/internal/storage"
)

// DB wraps a PostgreSQL connection pool and implements storage.Backend
type DB struct {
	pool *pgxpool.Pool
}

var _ storage.Backend = (*DB)(nil)

// Connect establishes a connection pool to the database and applies any
// pending migrations.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := migrate(ctx, db, "postgres"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Put inserts or replaces a document
func (db *DB) Put(ctx context.Context, id string, data []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO cv_documents (id, document)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}
	return nil
}

// Get retrieves a document
func (db *DB) Get(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT document FROM cv_documents WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return data, nil
}

// Delete removes a document; its artifacts go with it via ON DELETE CASCADE
func (db *DB) Delete(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM cv_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns every document ordered by id
func (db *DB) List(ctx context.Context) ([]storage.Record, error) {
	rows, err := db.pool.Query(ctx, `SELECT id::text, document FROM cv_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var rec storage.Record
		if err := rows.Scan(&rec.ID, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return records, nil
}

// Exists reports whether a document row exists
func (db *DB) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cv_documents WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", id, err)
	}
	return exists, nil
}

// PutArtifact inserts or replaces an artifact
func (db *DB) PutArtifact(ctx context.Context, id string, kind storage.ArtifactKind, data []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO cv_artifacts (document_id, kind, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_id, kind) DO UPDATE SET content = EXCLUDED.content, created_at = NOW()`,
		id, string(kind), data,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s for %s: %w", kind, id, err)
	}
	return nil
}

// GetArtifact retrieves an artifact
func (db *DB) GetArtifact(ctx context.Context, id string, kind storage.ArtifactKind) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM cv_artifacts WHERE document_id = $1 AND kind = $2`,
		id, string(kind),
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get artifact %s for %s: %w", kind, id, err)
	}
	return content, nil
}

// DeleteArtifact removes an artifact if present
func (db *DB) DeleteArtifact(ctx context.Context, id string, kind storage.ArtifactKind) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM cv_artifacts WHERE document_id = $1 AND kind = $2`,
		id, string(kind),
	)
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s for %s: %w", kind, id, err)
	}
	return nil
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	_, err := db.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (db *DB) migrationApplied(ctx context.Context, version string) (bool, error) {
	var applied bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
	).Scan(&applied)
	return applied, err
}

func (db *DB) applyMigration(ctx context.Context, version, script string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, script); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
