// Package postgres persists records in a PostgreSQL JSONB table through
// github.com/lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/migration"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/migrations"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

type Store struct {
	connStr string
	db      *sql.DB
}

var _ recordstore.Store = (*Store)(nil)

// Open connects, creates the tenken schema if needed and applies pending
// migrations. Passwords come from .pgpass, PGPASSWORD or a connection string
// kept in the OS keyring, never from the configured URI.
func Open(ctx context.Context, connStr string) (*Store, error) {
	s := &Store{connStr: withSearchPath(connStr)}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(connStr, "sslmode") {
			return nil, fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db

	if _, err := s.Migrate(ctx, nil); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// withSearchPath pins the session to the tenken schema unless the caller
// chose one.
func withSearchPath(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return connStr
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	if hasParam(connStr, "search_path") {
		return connStr
	}
	return strings.TrimSpace(connStr) + " search_path=" + constants.AppName
}

// hasParam reports whether a URL or key=value connection string sets key.
func hasParam(connStr, key string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for k := range u.Query() {
			if strings.EqualFold(k, key) {
				return true
			}
		}
	}
	for _, part := range strings.Fields(connStr) {
		k, _, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN without
// an embedded password.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := u.User.Password(); isSet {
			return ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return nil
	}

	for _, pair := range strings.Fields(connStr) {
		k, _, ok := strings.Cut(pair, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "password") {
			return ErrEmbeddedCredentials
		}
	}
	return nil
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
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DialectPostgres), nil
}

func (s *Store) List(ctx context.Context, collection string) ([]recordstore.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields FROM records WHERE collection = $1 ORDER BY id COLLATE \"C\"", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []recordstore.Record{}
	for rows.Next() {
		var id string
		var raw []byte
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
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT fields FROM records WHERE collection = $1 AND id = $2", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recordstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields recordstore.Document, merge bool) error {
	return s.Batch(ctx, []recordstore.Write{{Collection: collection, ID: id, Fields: fields, Merge: merge}})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []recordstore.Write{recordstore.Remove(collection, id)})
}

const (
	upsertReplace = `
		INSERT INTO records (collection, id, fields, updated_at) VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`
	upsertMerge = `
		INSERT INTO records (collection, id, fields, updated_at) VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE SET fields = records.fields || EXCLUDED.fields, updated_at = now()`
)

// Batch applies writes in one transaction.
func (s *Store) Batch(ctx context.Context, writes []recordstore.Write) error {
	if err := recordstore.ValidateBatch(writes); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range writes {
		if err := apply(ctx, tx, w); err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	logger.Debug("postgres batch committed", "writes", len(writes))
	return nil
}

func apply(ctx context.Context, tx *sql.Tx, w recordstore.Write) error {
	if w.Delete {
		_, err := tx.ExecContext(ctx, "DELETE FROM records WHERE collection = $1 AND id = $2", w.Collection, w.ID)
		return err
	}

	fields := w.Fields
	if fields == nil {
		fields = recordstore.Document{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	query := upsertReplace
	if w.Merge {
		query = upsertMerge
	}
	_, err = tx.ExecContext(ctx, query, w.Collection, w.ID, string(data))
	return err
}

func decode(raw []byte) (recordstore.Document, error) {
	fields := recordstore.Document{}
	if err := json.Unmarshal(raw, &fields); err != nil {
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
