package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/julianstephens/tenken/internal/cli/clitest"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
)

func seed(t *testing.T, store *memory.Store, collection, id string, doc recordstore.Document) {
	t.Helper()
	if err := store.Set(context.Background(), collection, id, doc, false); err != nil {
		t.Fatalf("seed %s/%s: %v", collection, id, err)
	}
}

func TestTaskAddCmd(t *testing.T) {
	store := memory.New()
	ctx, out := clitest.NewContext(store, "")

	cmd := &TaskAddCmd{Tier: "monthly", Item: "Pump", Place: "B1", Week: "2nd", Day: "tue", Visible: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("TaskAddCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Added monthly task: Pump at B1") {
		t.Errorf("output = %q", out.String())
	}

	records, err := store.List(context.Background(), "monthlySettings")
	if err != nil || len(records) != 1 {
		t.Fatalf("List() = %v, %v; want one record", records, err)
	}
	doc := records[0].Fields
	if doc["week"] != "第2" || doc["day"] != "火" || doc["visible"] != true {
		t.Errorf("stored doc = %v", doc)
	}
	if _, ok := doc["month"]; ok {
		t.Error("monthly task stored a month field")
	}
}

func TestTaskAddCmd_Rejections(t *testing.T) {
	store := memory.New()
	seed(t, store, "dailySettings", "d1", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月", "visible": true})

	tests := []struct {
		name string
		cmd  TaskAddCmd
		want func(error) bool
	}{
		{
			name: "unknown tier",
			cmd:  TaskAddCmd{Tier: "hourly", Item: "x", Place: "y"},
			want: func(err error) bool { return err != nil },
		},
		{
			name: "dimension the tier does not use",
			cmd:  TaskAddCmd{Tier: "daily", Item: "x", Place: "y", Month: "may"},
			want: func(err error) bool {
				var ife *apperr.InvalidFieldError
				return errors.As(err, &ife) && ife.Field == "month"
			},
		},
		{
			name: "bad day",
			cmd:  TaskAddCmd{Tier: "daily", Item: "x", Place: "y", Day: "someday"},
			want: func(err error) bool {
				var ife *apperr.InvalidFieldError
				return errors.As(err, &ife)
			},
		},
		{
			name: "duplicate",
			cmd:  TaskAddCmd{Tier: "daily", Item: "Filter", Place: "RoomA"},
			want: func(err error) bool {
				var dup *apperr.DuplicateTaskError
				return errors.As(err, &dup) && dup.ExistingID == "d1"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := clitest.NewContext(store, "")
			err := tt.cmd.Run(ctx)
			if !tt.want(err) {
				t.Errorf("Run() error = %v", err)
			}
		})
	}

	if n := store.Calls(memory.OpBatch); n != 0 {
		t.Errorf("rejected adds issued %d batch(es)", n)
	}
}

func TestTaskListCmd(t *testing.T) {
	store := memory.New()
	seed(t, store, "dailySettings", "d1", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月", "visible": true})
	seed(t, store, "dailySettings", "d2", recordstore.Document{"item": "Lamp", "place": "Lobby", "day": "金", "visible": false,
		"fileUrl": "https://example.com/lamp.pdf"})

	ctx, out := clitest.NewContext(store, "")
	if err := (&TaskListCmd{Tier: "daily"}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := out.String()
	lobby, room := strings.Index(got, "Lamp @ Lobby"), strings.Index(got, "Filter @ RoomA")
	if lobby < 0 || room < 0 || lobby > room {
		t.Errorf("expected Lobby before RoomA, got:\n%s", got)
	}
	if !strings.Contains(got, "Link: 参照ファイル <https://example.com/lamp.pdf>") {
		t.Errorf("missing link line:\n%s", got)
	}

	ctx, out = clitest.NewContext(store, "")
	if err := (&TaskListCmd{Tier: "daily", Sort: "day", VisibleOnly: true}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Contains(out.String(), "Lamp") {
		t.Errorf("--visible-only listed a hidden task:\n%s", out.String())
	}

	ctx, _ = clitest.NewContext(store, "")
	if err := (&TaskListCmd{Tier: "daily", Sort: "colour"}).Run(ctx); err == nil {
		t.Error("expected error for unknown sort column")
	}
}

func TestTaskEditCmd(t *testing.T) {
	store := memory.New()
	seed(t, store, "yearlySettings", "y1", recordstore.Document{"item": "Boiler", "place": "B2", "month": "4月", "visible": true})

	ctx, out := clitest.NewContext(store, "")
	cmd := &TaskEditCmd{Tier: "yearly", ID: "y1", Month: "oct", Hidden: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "[hidden] Boiler @ B2  10月") {
		t.Errorf("output = %q", out.String())
	}

	doc, err := store.Get(context.Background(), "yearlySettings", "y1")
	if err != nil {
		t.Fatal(err)
	}
	if doc["month"] != "10月" || doc["visible"] != false {
		t.Errorf("stored doc = %v", doc)
	}

	ctx, _ = clitest.NewContext(store, "")
	if err := (&TaskEditCmd{Tier: "yearly", ID: "y1"}).Run(ctx); err == nil {
		t.Error("expected error when nothing to change")
	}

	ctx, _ = clitest.NewContext(store, "")
	err = (&TaskEditCmd{Tier: "yearly", ID: "nope", Item: "x"}).Run(ctx)
	if !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Run() error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskDeleteCmd(t *testing.T) {
	store := memory.New()
	seed(t, store, "weeklySettings", "w1", recordstore.Document{"item": "Belt", "place": "B1", "day": "月", "visible": true})
	seed(t, store, "weeklyChecks", "w1", recordstore.Document{"timestamp": "2024-02-26", "user": "Bob"})

	ctx, out := clitest.NewContext(store, "n\n")
	if err := (&TaskDeleteCmd{Tier: "weekly", ID: "w1"}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Delete cancelled.") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := store.Get(context.Background(), "weeklySettings", "w1"); err != nil {
		t.Fatalf("declined delete removed the task: %v", err)
	}

	ctx, _ = clitest.NewContext(store, "y\n")
	if err := (&TaskDeleteCmd{Tier: "weekly", ID: "w1"}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, coll := range []string{"weeklySettings", "weeklyChecks"} {
		if _, err := store.Get(context.Background(), coll, "w1"); !errors.Is(err, recordstore.ErrNotFound) {
			t.Errorf("%s/w1 still present: %v", coll, err)
		}
	}
}

func TestTaskLinkCmd(t *testing.T) {
	store := memory.New()
	seed(t, store, "dailySettings", "d1", recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月", "visible": true})

	ctx, _ := clitest.NewContext(store, "")
	if err := (&TaskLinkCmd{Tier: "daily", ID: "d1", URL: "https://example.com/a.pdf"}).Run(ctx); err != nil {
		t.Fatalf("attach error = %v", err)
	}
	doc, _ := store.Get(context.Background(), "dailySettings", "d1")
	if doc["fileUrl"] != "https://example.com/a.pdf" || doc["fileName"] != "参照ファイル" {
		t.Errorf("stored doc = %v", doc)
	}

	ctx, _ = clitest.NewContext(store, "")
	err := (&TaskLinkCmd{Tier: "daily", ID: "d1", URL: "https://example.com/b.pdf"}).Run(ctx)
	if !errors.Is(err, apperr.ErrLinkAlreadySet) {
		t.Errorf("second attach error = %v, want ErrLinkAlreadySet", err)
	}

	ctx, _ = clitest.NewContext(store, "")
	if err := (&TaskLinkCmd{Tier: "daily", ID: "d1", URL: "https://example.com/b.pdf", Label: "Manual", Change: true}).Run(ctx); err != nil {
		t.Fatalf("change error = %v", err)
	}
	doc, _ = store.Get(context.Background(), "dailySettings", "d1")
	if doc["fileUrl"] != "https://example.com/b.pdf" || doc["fileName"] != "Manual" {
		t.Errorf("stored doc = %v", doc)
	}
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot(models.TierMonthly, map[models.SlotField]string{models.SlotWeek: "3", models.SlotDay: ""})
	if err != nil {
		t.Fatalf("ParseSlot() error = %v", err)
	}
	if slot.Week != "第3" || slot.Day != models.Unselected {
		t.Errorf("ParseSlot() = %+v", slot)
	}
}
