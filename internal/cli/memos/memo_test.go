package memos

import (
	"strings"
	"testing"

	"github.com/julianstephens/tenken/internal/cli/clitest"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
)

func TestMemoCommands(t *testing.T) {
	store := memory.New()

	for _, c := range []MemoAddCmd{
		{Text: "Elevator inspection", Start: "2024-03-01", End: "2024-03-10"},
		{Text: "Fire drill", Start: "2024-03-20", End: "2024-03-20"},
		{Text: "Old notice", Start: "2024-01-01", End: "2024-01-31"},
	} {
		ctx, _ := clitest.NewContext(store, "")
		if err := c.Run(ctx); err != nil {
			t.Fatalf("MemoAddCmd(%q) error = %v", c.Text, err)
		}
	}

	ctx, out := clitest.NewContext(store, "")
	if err := (&MemoListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	today, upcoming := strings.Index(got, "Elevator inspection"), strings.Index(got, "Fire drill")
	if today < 0 || upcoming < 0 || today > upcoming {
		t.Errorf("expected today's memo before the upcoming one:\n%s", got)
	}
	if strings.Contains(got, "Old notice") {
		t.Errorf("past memo listed without --all:\n%s", got)
	}

	ctx, out = clitest.NewContext(store, "")
	if err := (&MemoListCmd{All: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Old notice") {
		t.Errorf("--all omitted a past memo:\n%s", out.String())
	}

	ctx, out = clitest.NewContext(store, "y\n")
	if err := (&MemoDeleteCmd{ID: "2024-01-01_2024-01-31"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Deleted memo 2024-01-01_2024-01-31") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMemoAddCmd_Invalid(t *testing.T) {
	tests := []MemoAddCmd{
		{Text: "", Start: "2024-03-01", End: "2024-03-02"},
		{Text: "x", Start: "2024/03/01", End: "2024-03-02"},
		{Text: "x", Start: "2024-03-05", End: "2024-03-01"},
	}
	for _, c := range tests {
		store := memory.New()
		ctx, _ := clitest.NewContext(store, "")
		if err := c.Run(ctx); err == nil {
			t.Errorf("MemoAddCmd(%+v) expected error", c)
		}
		if n := store.Calls(memory.OpSet); n != 0 {
			t.Errorf("invalid memo reached the store")
		}
	}
}
