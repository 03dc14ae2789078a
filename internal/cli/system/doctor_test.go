package system

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/cli/clitest"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
	"github.com/julianstephens/tenken/internal/recordstore/rediscache"
	"github.com/julianstephens/tenken/internal/recordstore/sqlite"
)

func seed(t *testing.T, store recordstore.Store, collection, id string, doc recordstore.Document) {
	t.Helper()
	if err := store.Set(context.Background(), collection, id, doc, false); err != nil {
		t.Fatalf("seed %s/%s: %v", collection, id, err)
	}
}

func sqliteContext(t *testing.T) *cli.Context {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tenken.db")
	cfg := config.Default()
	cfg.Store = dbPath
	cfg.Timezone = "UTC"

	ctx := cli.NewContext(cfg, "", config.StoreTarget{Kind: config.StoreSQLite, Target: dbPath})
	ctx.Out = &strings.Builder{}
	ctx.Open = func(c context.Context) (recordstore.Store, error) {
		return sqlite.Open(c, dbPath)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestDoctorCmd_HealthyMemoryStore(t *testing.T) {
	store := memory.New()
	seed(t, store, "dailySettings", "d1", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月", "visible": true})
	ctx, out := clitest.NewContext(store, "")

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed on a healthy store: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "All checks passed.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDoctorCmd_SQLiteMissingBackupsWarns(t *testing.T) {
	ctx := sqliteContext(t)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	got := ctx.Out.(*strings.Builder).String()
	if !strings.Contains(got, "✓ Schema version: OK") {
		t.Errorf("schema check missing:\n%s", got)
	}
	if !strings.Contains(got, "⚠ Backups present: WARNING") {
		t.Errorf("backup warning missing:\n%s", got)
	}
}

func TestDoctorCmd_UnreachableStore(t *testing.T) {
	ctx, out := clitest.NewContext(memory.New(), "")
	ctx.Open = func(context.Context) (recordstore.Store, error) {
		return nil, errors.New("connection refused")
	}

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail")
	}
	got := out.String()
	if !strings.Contains(got, "❌ Store reachable: FAIL") || !strings.Contains(got, "⊘ Catalog integrity: SKIPPED") {
		t.Errorf("output = %q", got)
	}
}

func TestCatalogProblems(t *testing.T) {
	store := memory.New()
	seed(t, store, "dailySettings", "d1", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月"})
	seed(t, store, "dailySettings", "d2", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "火"})
	seed(t, store, "weeklySettings", "w1", recordstore.Document{"item": "", "place": "B1", "day": "月"})
	seed(t, store, "yearlySettings", "y1", recordstore.Document{"item": "Boiler", "place": "B2", "month": "13月"})

	problems, err := CatalogProblems(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"daily tasks d1 and d2: duplicate",
		"weekly task w1: item and place are required",
		"yearly task y1: invalid month",
	}
	if len(problems) != len(want) {
		t.Fatalf("CatalogProblems() = %q, want %d problems", problems, len(want))
	}
	for i, w := range want {
		if !strings.Contains(problems[i], w) {
			t.Errorf("problem %d = %q, want it to contain %q", i, problems[i], w)
		}
	}
}

func TestLogProblems(t *testing.T) {
	store := memory.New()
	seed(t, store, "monthlySettings", "m1", recordstore.Document{"item": "Pump", "place": "B1"})
	seed(t, store, "monthlyChecks", "m1", recordstore.Document{"timestamp": "2024/02/10", "user": "Ann"})
	seed(t, store, "monthlyChecks", "gone", recordstore.Document{"timestamp": "2024-02-10", "user": "Ann"})

	problems, err := LogProblems(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 2 {
		t.Fatalf("LogProblems() = %q, want 2", problems)
	}
	if !strings.Contains(problems[0], `monthly log m1: invalid timestamp "2024/02/10"`) {
		t.Errorf("problems[0] = %q", problems[0])
	}
	if !strings.Contains(problems[1], "monthly logs without a task: gone") {
		t.Errorf("problems[1] = %q", problems[1])
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx := sqliteContext(t)
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("MigrateCmd.Run() error = %v", err)
	}
	if !strings.Contains(ctx.Out.(*strings.Builder).String(), "Database is up to date") {
		t.Errorf("output = %q", ctx.Out.(*strings.Builder).String())
	}

	mem, _ := clitest.NewContext(memory.New(), "")
	if err := (&MigrateCmd{}).Run(mem); err == nil {
		t.Error("expected migrate to reject a memory store")
	}
}

func TestInitCmd(t *testing.T) {
	store := memory.New()
	ctx, out := clitest.NewContext(store, "")
	ctx.ConfigPath = filepath.Join(t.TempDir(), "tenken", "config.yaml")

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("InitCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Wrote config to:") || !strings.Contains(out.String(), "Initialized tenken memory storage") {
		t.Errorf("output = %q", out.String())
	}

	loaded, err := config.Load(ctx.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Store != "memory://" || loaded.Operator.Name != "Ann" {
		t.Errorf("written config = %+v", loaded)
	}

	ctx, out = clitest.NewContext(store, "")
	ctx.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
		t.Fatal(err)
	}
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Config already exists") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSQLBackendUnwrapsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tenken.db"))
	if err != nil {
		t.Fatal(err)
	}
	cached := rediscache.New(db, redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = cached.Close() })

	m, ok := sqlBackend(cached)
	if !ok {
		t.Fatal("sqlBackend() did not find the sqlite store behind the cache")
	}
	current, latest, err := m.SchemaVersion(context.Background())
	if err != nil || current != latest {
		t.Errorf("SchemaVersion() = %d, %d, %v", current, latest, err)
	}

	if _, ok := sqlBackend(rediscache.New(memory.New(), redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)); ok {
		t.Error("sqlBackend() matched a memory store")
	}
}
