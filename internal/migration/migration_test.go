package migration

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/tenken/migrations"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    []int
		wantErr string
	}{
		{
			name: "sorted by version",
			files: fstest.MapFS{
				"002_second.sql": {Data: []byte("SELECT 2;")},
				"001_first.sql":  {Data: []byte("SELECT 1;")},
				"README.md":      {Data: []byte("ignored")},
			},
			want: []int{1, 2},
		},
		{
			name:    "missing separator",
			files:   fstest.MapFS{"001.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid migration filename",
		},
		{
			name:    "zero version",
			files:   fstest.MapFS{"000_zero.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid version number",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"001_a.sql":  {Data: []byte("SELECT 1;")},
				"0001_b.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "duplicate migration version 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(nil, tt.files, DialectSQLite)
			got, err := r.Migrations()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Migrations() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Migrations() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Migrations() returned %d, want %d", len(got), len(tt.want))
			}
			for i, v := range tt.want {
				if got[i].Version != v {
					t.Errorf("migration %d version = %d, want %d", i, got[i].Version, v)
				}
			}
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_tasks.sql": {Data: []byte("CREATE TABLE t1 (id TEXT);")},
		"002_logs.sql":  {Data: []byte("CREATE TABLE t2 (id TEXT);")},
	}
	r := NewRunner(db, files, DialectSQLite)

	var lines []string
	n, err := r.Apply(ctx, func(s string) { lines = append(lines, s) })
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Apply() applied %d, want 2", n)
	}
	if v, _ := r.CurrentVersion(ctx); v != 2 {
		t.Errorf("CurrentVersion() = %d, want 2", v)
	}
	if len(lines) == 0 {
		t.Error("Apply() logged nothing")
	}

	n, err = r.Apply(ctx, nil)
	if err != nil || n != 0 {
		t.Errorf("second Apply() = %d, %v; want 0, nil", n, err)
	}
}

func TestApply_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	r := NewRunner(db, files, DialectSQLite)

	n, err := r.Apply(ctx, nil)
	if err == nil {
		t.Fatal("Apply() expected error for broken migration")
	}
	if n != 1 {
		t.Errorf("Apply() applied %d before failing, want 1", n)
	}
	if v, _ := r.CurrentVersion(ctx); v != 1 {
		t.Errorf("CurrentVersion() = %d, want 1", v)
	}
}

func TestValidate_NewerDatabase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	r := NewRunner(db, fstest.MapFS{"001_a.sql": {Data: []byte("SELECT 1;")}}, DialectSQLite)

	if _, err := r.Apply(ctx, nil); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 9"); err != nil {
		t.Fatalf("failed to bump version: %v", err)
	}
	if err := r.Validate(ctx); err == nil {
		t.Error("Validate() expected error for newer database")
	}
}

func TestEmbeddedSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	r := NewRunner(openTestDB(t), sub, DialectSQLite)
	if _, err := r.Apply(ctx, nil); err != nil {
		t.Fatalf("Apply() embedded migrations error = %v", err)
	}
	latest, _ := r.LatestVersion()
	if v, _ := r.CurrentVersion(ctx); v != latest || latest == 0 {
		t.Errorf("CurrentVersion() = %d, LatestVersion() = %d", v, latest)
	}
}
