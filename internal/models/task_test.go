package models

import (
	"testing"

	"github.com/julianstephens/tenken/internal/constants"
)

func TestTaskFromDocument(t *testing.T) {
	t.Run("missing slot reads as unselected", func(t *testing.T) {
		task := TaskFromDocument(TierMonthly, "m1", map[string]any{
			"item":    "Filter",
			"place":   "RoomA",
			"week":    "第2",
			"visible": true,
		})
		if task.Slot.Get(SlotWeek) != "第2" {
			t.Errorf("week = %q, want 第2", task.Slot.Get(SlotWeek))
		}
		if task.Slot.Get(SlotDay) != Unselected {
			t.Errorf("day = %q, want %q", task.Slot.Get(SlotDay), Unselected)
		}
		if !task.Visible {
			t.Error("visible = false, want true")
		}
	})

	t.Run("unknown slot value reads as unselected", func(t *testing.T) {
		task := TaskFromDocument(TierYearly, "y1", map[string]any{"month": "13月"})
		if got := task.Slot.Get(SlotMonth); got != Unselected {
			t.Errorf("month = %q, want %q", got, Unselected)
		}
	})

	t.Run("link without label gets default", func(t *testing.T) {
		task := TaskFromDocument(TierDaily, "d1", map[string]any{"fileUrl": "https://example.com/a.pdf"})
		if task.Link == nil {
			t.Fatal("link = nil")
		}
		if task.Link.Label != constants.DefaultLinkLabel {
			t.Errorf("label = %q, want %q", task.Link.Label, constants.DefaultLinkLabel)
		}
	})
}

func TestMaintenanceTask_Document(t *testing.T) {
	task := MaintenanceTask{
		ID:    "w1",
		Tier:  TierWeekly,
		Item:  "Filter",
		Place: "RoomA",
		Slot:  Slot{Day: "火", Month: "3月"},
	}
	doc := task.Document()

	if doc["day"] != "火" {
		t.Errorf("day = %v, want 火", doc["day"])
	}
	if _, ok := doc["month"]; ok {
		t.Error("weekly document should not carry a month field")
	}
	if _, ok := doc[FieldFileURL]; ok {
		t.Error("document without link should not carry fileUrl")
	}
	if doc[FieldVisible] != false {
		t.Errorf("visible = %v, want false", doc[FieldVisible])
	}
}

func TestTaskDraft_IsZero(t *testing.T) {
	tests := []struct {
		name  string
		draft TaskDraft
		want  bool
	}{
		{name: "new draft", draft: NewDraft(), want: true},
		{name: "zero value", draft: TaskDraft{}, want: true},
		{name: "whitespace item", draft: TaskDraft{Item: "  ", Slot: UnselectedSlot()}, want: true},
		{name: "item set", draft: TaskDraft{Item: "Filter", Slot: UnselectedSlot()}, want: false},
		{name: "visible set", draft: TaskDraft{Visible: true, Slot: UnselectedSlot()}, want: false},
		{name: "day chosen", draft: TaskDraft{Slot: UnselectedSlot().With(SlotDay, "月")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.draft.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletionLogEntry(t *testing.T) {
	e := LogFromDocument("w1", map[string]any{"timestamp": "2024-03-04", "user": "Bob", "note": "x"})
	if got := e.Display(); got != "2024-03-04・Bob" {
		t.Errorf("Display() = %q, want 2024-03-04・Bob", got)
	}
	if e.Extra["note"] != "x" {
		t.Errorf("Extra[note] = %v, want x", e.Extra["note"])
	}

	empty := LogFromDocument("w2", map[string]any{})
	if empty.Logged() {
		t.Error("empty entry reports logged")
	}
	if empty.Display() != "" {
		t.Errorf("Display() = %q, want empty", empty.Display())
	}
}

func TestMemo_ActiveOn(t *testing.T) {
	m := Memo{StartDate: "2024-03-01", EndDate: "2024-03-05"}
	for day, want := range map[string]bool{
		"2024-02-29": false,
		"2024-03-01": true,
		"2024-03-03": true,
		"2024-03-05": true,
		"2024-03-06": false,
	} {
		if got := m.ActiveOn(day); got != want {
			t.Errorf("ActiveOn(%s) = %v, want %v", day, got, want)
		}
	}
}
