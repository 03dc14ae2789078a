package models

import (
	"strings"

	"github.com/julianstephens/tenken/internal/constants"
)

// Stored field names of a catalog document.
const (
	FieldItem     = "item"
	FieldPlace    = "place"
	FieldVisible  = "visible"
	FieldFileURL  = "fileUrl"
	FieldFileName = "fileName"
)

// ReferenceLink points at the procedure document of a task.
type ReferenceLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// MaintenanceTask is one recurring item of a tier's catalog.
type MaintenanceTask struct {
	ID      string         `json:"id"`
	Tier    Tier           `json:"tier"`
	Item    string         `json:"item"`
	Place   string         `json:"place"`
	Slot    Slot           `json:"slot"`
	Visible bool           `json:"visible"`
	Link    *ReferenceLink `json:"link,omitempty"`
}

// Clone returns a deep copy of the task.
func (t MaintenanceTask) Clone() MaintenanceTask {
	if t.Link != nil {
		link := *t.Link
		t.Link = &link
	}
	return t
}

// Document converts the task into its stored shape. Only the slot
// dimensions of the task's tier are written.
func (t MaintenanceTask) Document() map[string]any {
	doc := map[string]any{
		FieldItem:    t.Item,
		FieldPlace:   t.Place,
		FieldVisible: t.Visible,
	}
	for _, f := range t.Tier.SlotFields() {
		doc[string(f)] = t.Slot.Get(f)
	}
	if t.Link != nil && t.Link.URL != "" {
		doc[FieldFileURL] = t.Link.URL
		label := t.Link.Label
		if label == "" {
			label = constants.DefaultLinkLabel
		}
		doc[FieldFileName] = label
	}
	return doc
}

// TaskFromDocument rebuilds a task from a stored catalog document. Missing or
// unknown slot values read as Unselected.
func TaskFromDocument(tier Tier, id string, doc map[string]any) MaintenanceTask {
	t := MaintenanceTask{
		ID:      id,
		Tier:    tier,
		Item:    StringField(doc, FieldItem),
		Place:   StringField(doc, FieldPlace),
		Slot:    UnselectedSlot(),
		Visible: BoolField(doc, FieldVisible),
	}
	for _, f := range tier.SlotFields() {
		v := StringField(doc, string(f))
		if !f.Valid(v) {
			v = Unselected
		}
		t.Slot = t.Slot.With(f, v)
	}
	if url := StringField(doc, FieldFileURL); url != "" {
		label := StringField(doc, FieldFileName)
		if label == "" {
			label = constants.DefaultLinkLabel
		}
		t.Link = &ReferenceLink{URL: url, Label: label}
	}
	return t
}

// TaskDraft is the new-task form of a settings view.
type TaskDraft struct {
	Item    string
	Place   string
	Slot    Slot
	Visible bool
}

// NewDraft returns an empty draft with every slot dimension Unselected.
func NewDraft() TaskDraft {
	return TaskDraft{Slot: UnselectedSlot()}
}

// IsZero reports whether the draft still holds only default values.
func (d TaskDraft) IsZero() bool {
	if strings.TrimSpace(d.Item) != "" || strings.TrimSpace(d.Place) != "" || d.Visible {
		return false
	}
	for _, f := range []SlotField{SlotDay, SlotWeek, SlotMonth} {
		if d.Slot.Get(f) != Unselected {
			return false
		}
	}
	return true
}

// StringField reads a string value from a stored document.
func StringField(doc map[string]any, key string) string {
	if doc == nil {
		return ""
	}
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

// BoolField reads a boolean value from a stored document. String encodings
// written by older clients ("true") are accepted.
func BoolField(doc map[string]any, key string) bool {
	if doc == nil {
		return false
	}
	switch v := doc[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
