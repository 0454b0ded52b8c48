package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jonathan/cv-generator/internal/storage"
)

// SQLite is a storage.Backend on an embedded SQLite database file
type SQLite struct {
	conn *sql.DB
}

var _ storage.Backend = (*SQLite)(nil)

// sqliteDSN enables foreign keys and a busy timeout on every pooled connection
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens (creating if needed) the database at path and applies any
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := migrate(ctx, s, "sqlite"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return s, nil
}

// Close closes the DB connection
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Put inserts or replaces a document
func (s *SQLite) Put(ctx context.Context, id string, data []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cv_documents (id, document) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET document = excluded.document, updated_at = strftime('%s','now')`,
		id, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}
	return nil
}

// Get retrieves a document
func (s *SQLite) Get(ctx context.Context, id string) ([]byte, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx, `SELECT document FROM cv_documents WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return []byte(doc), nil
}

// Delete removes a document and its artifacts in one transaction
func (s *SQLite) Delete(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cv_artifacts WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artifacts of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cv_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

// List returns every document ordered by id
func (s *SQLite) List(ctx context.Context) ([]storage.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, document FROM cv_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, storage.Record{ID: id, Data: []byte(doc)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return records, nil
}

// Exists reports whether a document row exists
func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM cv_documents WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", id, err)
	}
	return n > 0, nil
}

// PutArtifact inserts or replaces an artifact
func (s *SQLite) PutArtifact(ctx context.Context, id string, kind storage.ArtifactKind, data []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cv_artifacts (document_id, kind, content) VALUES (?, ?, ?)
		 ON CONFLICT (document_id, kind) DO UPDATE SET content = excluded.content, created_at = strftime('%s','now')`,
		id, string(kind), data,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s for %s: %w", kind, id, err)
	}
	return nil
}

// GetArtifact retrieves an artifact
func (s *SQLite) GetArtifact(ctx context.Context, id string, kind storage.ArtifactKind) ([]byte, error) {
	var content []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT content FROM cv_artifacts WHERE document_id = ? AND kind = ?`, id, string(kind),
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get artifact %s for %s: %w", kind, id, err)
	}
	return content, nil
}

// DeleteArtifact removes an artifact if present
func (s *SQLite) DeleteArtifact(ctx context.Context, id string, kind storage.ArtifactKind) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM cv_artifacts WHERE document_id = ? AND kind = ?`, id, string(kind),
	)
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s for %s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLite) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`)
	return err
}

func (s *SQLite) migrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version,
	).Scan(&count)
	return count > 0, err
}

func (s *SQLite) applyMigration(ctx context.Context, version, script string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version,
	); err != nil {
		return err
	}
	return tx.Commit()
}
