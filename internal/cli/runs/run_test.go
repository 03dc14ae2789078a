package runs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/cli/clitest"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
)

func seedWeekly(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	docs := map[string]recordstore.Document{
		"w1": {"item": "Belt", "place": "B1", "day": "月", "visible": true},
		"w2": {"item": "Fan", "place": "A1", "day": "水", "visible": true},
		"w3": {"item": "Hidden", "place": "C1", "day": "金", "visible": false},
	}
	for id, doc := range docs {
		if err := store.Set(ctx, "weeklySettings", id, doc, false); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Set(ctx, "weeklyChecks", "w1", recordstore.Document{"timestamp": "2024-02-26", "user": "Bob"}, false); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRunShowCmd(t *testing.T) {
	ctx, out := clitest.NewContext(seedWeekly(t), "")
	if err := (&RunShowCmd{Tier: "weekly"}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Weekly run sheet (cleared)") {
		t.Errorf("missing header:\n%s", got)
	}
	if !strings.Contains(got, "[ ] Belt @ B1  月  2024-02-26・Bob (ID: w1)") {
		t.Errorf("missing Belt row:\n%s", got)
	}
	if strings.Contains(got, "Hidden") {
		t.Errorf("hidden task on the run sheet:\n%s", got)
	}
}

func TestRunCheckCmd(t *testing.T) {
	store := seedWeekly(t)
	ctx, out := clitest.NewContext(store, "")

	cmd := &RunCheckCmd{Tier: "weekly", Check: []string{"w1", "w2"}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Saved 2 weekly log write(s) as Ann on "+clitest.Today) {
		t.Errorf("output = %q", out.String())
	}
	for _, id := range []string{"w1", "w2"} {
		doc, err := store.Get(context.Background(), "weeklyChecks", id)
		if err != nil {
			t.Fatal(err)
		}
		if doc["timestamp"] != clitest.Today || doc["user"] != "Ann" {
			t.Errorf("%s log = %v", id, doc)
		}
	}
}

func TestRunCheckCmd_UncheckDeletesUnderFromLog(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.Set(ctx, "yearlySettings", "y1", recordstore.Document{"item": "Boiler", "place": "B2", "month": "4月", "visible": true}, false)
	_ = store.Set(ctx, "yearlyChecks", "y1", recordstore.Document{"timestamp": "2023-04-10", "user": "Bob"}, false)

	cctx, _ := clitest.NewContext(store, "")
	if err := (&RunCheckCmd{Tier: "yearly", Uncheck: []string{"y1"}, User: "Cy"}).Run(cctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := store.Get(ctx, "yearlyChecks", "y1"); !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("unchecked log still present: %v", err)
	}
}

func TestRunCheckCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     RunCheckCmd
		noUser  bool
		wantErr error
	}{
		{name: "nothing to do", cmd: RunCheckCmd{Tier: "weekly"}},
		{name: "no operator", cmd: RunCheckCmd{Tier: "weekly", Check: []string{"w1"}}, noUser: true, wantErr: cli.ErrNoUser},
		{name: "unknown task", cmd: RunCheckCmd{Tier: "weekly", Check: []string{"w9"}}, wantErr: apperr.ErrTaskNotFound},
		{name: "hidden task", cmd: RunCheckCmd{Tier: "weekly", Check: []string{"w3"}}, wantErr: apperr.ErrTaskNotFound},
		{name: "uncheck under cleared policy", cmd: RunCheckCmd{Tier: "weekly", Uncheck: []string{"w1"}}, wantErr: ErrUncheckCleared},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedWeekly(t)
			ctx, _ := clitest.NewContext(store, "")
			if tt.noUser {
				ctx.Config.Operator.Name = ""
			}
			err := tt.cmd.Run(ctx)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if n := store.Calls(memory.OpBatch); n != 0 {
				t.Errorf("failed check-in issued %d batch(es)", n)
			}
		})
	}
}

func TestRunCheckCmd_BatchFailure(t *testing.T) {
	store := seedWeekly(t)
	store.FailWrite("weeklyChecks", "w2", errors.New("disk full"))
	ctx, out := clitest.NewContext(store, "")

	err := (&RunCheckCmd{Tier: "weekly", Check: []string{"w1", "w2"}}).Run(ctx)
	var bwe *apperr.BatchWriteError
	if !errors.As(err, &bwe) || !bwe.Reloaded {
		t.Fatalf("Run() error = %v, want reloaded BatchWriteError", err)
	}
	if !strings.Contains(out.String(), "Nothing was saved") {
		t.Errorf("output = %q", out.String())
	}
	doc, _ := store.Get(context.Background(), "weeklyChecks", "w1")
	if doc["user"] != "Bob" {
		t.Errorf("w1 log changed by a failed batch: %v", doc)
	}
}

func TestLogClearCmd(t *testing.T) {
	store := seedWeekly(t)

	ctx, out := clitest.NewContext(store, "no\n")
	if err := (&LogClearCmd{Tier: "weekly", ID: "w1"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Clear cancelled.") {
		t.Errorf("output = %q", out.String())
	}

	ctx, _ = clitest.NewContext(store, "")
	if err := (&LogClearCmd{Tier: "weekly", ID: "w1", Yes: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), "weeklyChecks", "w1"); !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("log still present: %v", err)
	}
	if _, err := store.Get(context.Background(), "weeklySettings", "w1"); err != nil {
		t.Errorf("clearing a log removed the task: %v", err)
	}
}
