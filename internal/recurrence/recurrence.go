// Package recurrence orders maintenance tasks. Slot values are ranked by
// fixed per-dimension tables with Unselected always last.
package recurrence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/tenken/internal/models"
)

// Column is a sortable task attribute.
type Column string

const (
	ColumnItem    Column = "item"
	ColumnPlace   Column = "place"
	ColumnDay     Column = "day"
	ColumnWeek    Column = "week"
	ColumnMonth   Column = "month"
	ColumnSlot    Column = "slot"
	ColumnVisible Column = "visible"
)

// ParseColumn parses a column name (case-insensitive).
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ColumnItem, ColumnPlace, ColumnDay, ColumnWeek, ColumnMonth, ColumnSlot, ColumnVisible:
		return c, nil
	}
	return "", fmt.Errorf("invalid sort column: %q", s)
}

// ColumnsFor lists the columns meaningful for a tier, in display order.
func ColumnsFor(tier models.Tier) []Column {
	cols := []Column{ColumnPlace, ColumnItem}
	for _, f := range tier.SlotFields() {
		cols = append(cols, Column(f))
	}
	return append(cols, ColumnVisible)
}

// Next returns the column after current in ColumnsFor(tier), wrapping.
func Next(tier models.Tier, current Column) Column {
	cols := ColumnsFor(tier)
	for i, c := range cols {
		if c == current {
			return cols[(i+1)%len(cols)]
		}
	}
	return cols[0]
}

// Rank is the priority of v within a slot dimension: its table position,
// or one past the last label for Unselected and unknown values.
func Rank(f models.SlotField, v string) int {
	labels := f.Labels()
	for i, l := range labels {
		if l == v {
			return i
		}
	}
	return len(labels)
}

// CompareSlot orders two slots of a tier by its dimensions in precedence
// order (monthly: week, then day).
func CompareSlot(tier models.Tier, a, b models.Slot) int {
	for _, f := range tier.SlotFields() {
		if c := compareInt(Rank(f, a.Get(f)), Rank(f, b.Get(f))); c != 0 {
			return c
		}
	}
	return 0
}

// Compare orders two tasks on one column. Strings compare ordinally;
// visible tasks come before hidden ones.
func Compare(col Column, a, b models.MaintenanceTask) int {
	switch col {
	case ColumnItem:
		return strings.Compare(a.Item, b.Item)
	case ColumnPlace:
		return strings.Compare(a.Place, b.Place)
	case ColumnDay, ColumnWeek, ColumnMonth:
		f := models.SlotField(col)
		return compareInt(Rank(f, a.Slot.Get(f)), Rank(f, b.Slot.Get(f)))
	case ColumnSlot:
		return CompareSlot(a.Tier, a.Slot, b.Slot)
	case ColumnVisible:
		switch {
		case a.Visible == b.Visible:
			return 0
		case a.Visible:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}

// Sort orders tasks in place on col. Ties keep their input order.
func Sort(tasks []models.MaintenanceTask, col Column) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Compare(col, tasks[i], tasks[j]) < 0
	})
}

// SortDefault orders tasks by place, then item, then slot.
func SortDefault(tasks []models.MaintenanceTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		for _, col := range []Column{ColumnPlace, ColumnItem, ColumnSlot} {
			if c := Compare(col, tasks[i], tasks[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
