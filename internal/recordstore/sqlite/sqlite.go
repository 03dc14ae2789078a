// Package sqlite persists records in a local SQLite database through
// modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/migration"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/migrations"
)

type Store struct {
	path string
	db   *sql.DB
}

var _ recordstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps transactions from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{path: path, db: db}
	if _, err := s.Migrate(ctx, nil); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	n, err := runner.Apply(ctx, logFn)
	if err != nil {
		return n, fmt.Errorf("failed to run migrations: %w", err)
	}
	return n, nil
}

// SchemaVersion returns the applied and the bundled schema versions.
func (s *Store) SchemaVersion(ctx context.Context) (current, latest int, err error) {
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.CurrentVersion(ctx); err != nil {
		return 0, 0, err
	}
	latest, err = runner.LatestVersion()
	return current, latest, err
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DialectSQLite), nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) List(ctx context.Context, collection string) ([]recordstore.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields FROM records WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []recordstore.Record{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
		}
		records = append(records, recordstore.Record{ID: id, Fields: fields})
	}
	return records, rows.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (recordstore.Document, error) {
	return get(ctx, s.db, collection, id)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields recordstore.Document, merge bool) error {
	return s.Batch(ctx, []recordstore.Write{{Collection: collection, ID: id, Fields: fields, Merge: merge}})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []recordstore.Write{recordstore.Remove(collection, id)})
}

// Batch applies writes in one transaction. Merges read the stored fields
// inside the same transaction.
func (s *Store) Batch(ctx context.Context, writes []recordstore.Write) error {
	if err := recordstore.ValidateBatch(writes); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range writes {
		if err := apply(ctx, tx, w, now); err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	logger.Debug("sqlite batch committed", "writes", len(writes))
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, collection, id string) (recordstore.Document, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT fields FROM records WHERE collection = ? AND id = ?", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recordstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func apply(ctx context.Context, tx *sql.Tx, w recordstore.Write, now string) error {
	if w.Delete {
		_, err := tx.ExecContext(ctx, "DELETE FROM records WHERE collection = ? AND id = ?", w.Collection, w.ID)
		return err
	}

	fields := w.Fields
	if w.Merge {
		existing, err := get(ctx, tx, w.Collection, w.ID)
		if err != nil && !errors.Is(err, recordstore.ErrNotFound) {
			return err
		}
		fields = recordstore.Merge(existing, fields)
	}

	data, err := encode(fields)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (collection, id, fields, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		w.Collection, w.ID, data, now)
	return err
}

func encode(fields recordstore.Document) (string, error) {
	if fields == nil {
		fields = recordstore.Document{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func decode(raw string) (recordstore.Document, error) {
	fields := recordstore.Document{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
