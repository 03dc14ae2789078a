package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotField names one dimension of a task's recurrence slot.
type SlotField string

const (
	SlotDay   SlotField = "day"
	SlotWeek  SlotField = "week"
	SlotMonth SlotField = "month"
)

// Unselected is stored when the operator has not chosen a value for a slot dimension.
const Unselected = "未選択"

var (
	DayLabels   = []string{"月", "火", "水", "木", "金", "土", "日"}
	WeekLabels  = []string{"第1", "第2", "第3", "第4", "第5"}
	MonthLabels = []string{"1月", "2月", "3月", "4月", "5月", "6月", "7月", "8月", "9月", "10月", "11月", "12月"}
)

var dayAliases = map[string]int{
	"mon": 0, "monday": 0,
	"tue": 1, "tuesday": 1,
	"wed": 2, "wednesday": 2,
	"thu": 3, "thursday": 3,
	"fri": 4, "friday": 4,
	"sat": 5, "saturday": 5,
	"sun": 6, "sunday": 6,
}

var weekAliases = map[string]int{
	"1st": 0, "first": 0,
	"2nd": 1, "second": 1,
	"3rd": 2, "third": 2,
	"4th": 3, "fourth": 3,
	"5th": 4, "fifth": 4,
}

var monthAliases = map[string]int{
	"jan": 0, "january": 0,
	"feb": 1, "february": 1,
	"mar": 2, "march": 2,
	"apr": 3, "april": 3,
	"may": 4,
	"jun": 5, "june": 5,
	"jul": 6, "july": 6,
	"aug": 7, "august": 7,
	"sep": 8, "september": 8,
	"oct": 9, "october": 9,
	"nov": 10, "november": 10,
	"dec": 11, "december": 11,
}

// Labels returns the stored labels of the dimension, excluding Unselected.
func (f SlotField) Labels() []string {
	switch f {
	case SlotDay:
		return DayLabels
	case SlotWeek:
		return WeekLabels
	case SlotMonth:
		return MonthLabels
	default:
		return nil
	}
}

// Options returns the labels followed by Unselected.
func (f SlotField) Options() []string {
	labels := f.Labels()
	opts := make([]string, 0, len(labels)+1)
	opts = append(opts, labels...)
	return append(opts, Unselected)
}

// Valid reports whether v is a stored label of the dimension or Unselected.
func (f SlotField) Valid(v string) bool {
	if v == Unselected {
		return true
	}
	for _, l := range f.Labels() {
		if l == v {
			return true
		}
	}
	return false
}

// Parse converts operator input into the stored label. It accepts the stored
// labels themselves, English names and abbreviations, and 1-based numbers.
func (f SlotField) Parse(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" || s == "-" || strings.EqualFold(s, "unselected") || s == Unselected {
		return Unselected, nil
	}
	if f.Valid(s) {
		return s, nil
	}

	labels := f.Labels()
	lower := strings.ToLower(s)

	var aliases map[string]int
	switch f {
	case SlotDay:
		aliases = dayAliases
	case SlotWeek:
		aliases = weekAliases
	case SlotMonth:
		aliases = monthAliases
	default:
		return "", fmt.Errorf("unknown slot field: %s", f)
	}
	if idx, ok := aliases[lower]; ok {
		return labels[idx], nil
	}

	// 1-based numbers: 1=Monday for days, 1=1st week, 1=January
	if n, err := strconv.Atoi(lower); err == nil && n >= 1 && n <= len(labels) {
		return labels[n-1], nil
	}

	return "", fmt.Errorf("invalid %s: %q", f, input)
}

// Slot is a task's recurrence descriptor. Only the dimensions of the task's
// tier are meaningful; the others stay Unselected.
type Slot struct {
	Day   string `json:"day,omitempty"`
	Week  string `json:"week,omitempty"`
	Month string `json:"month,omitempty"`
}

// UnselectedSlot returns a slot with every dimension Unselected.
func UnselectedSlot() Slot {
	return Slot{Day: Unselected, Week: Unselected, Month: Unselected}
}

// Get returns the value of a dimension, reading empty as Unselected.
func (s Slot) Get(f SlotField) string {
	var v string
	switch f {
	case SlotDay:
		v = s.Day
	case SlotWeek:
		v = s.Week
	case SlotMonth:
		v = s.Month
	}
	if v == "" {
		return Unselected
	}
	return v
}

// With returns a copy of the slot with one dimension replaced.
func (s Slot) With(f SlotField, v string) Slot {
	switch f {
	case SlotDay:
		s.Day = v
	case SlotWeek:
		s.Week = v
	case SlotMonth:
		s.Month = v
	}
	return s
}

// Format renders the tier's slot dimensions for display.
func (s Slot) Format(t Tier) string {
	fields := t.SlotFields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, s.Get(f))
	}
	return strings.Join(parts, " ")
}
