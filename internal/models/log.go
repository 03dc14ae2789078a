package models

import "github.com/julianstephens/tenken/internal/constants"

// Stored field names of a completion log document.
const (
	FieldTimestamp = "timestamp"
	FieldUser      = "user"
)

// CompletionLogEntry is the most recent completion of a task. It is keyed by
// the task id in the tier's checks collection.
type CompletionLogEntry struct {
	TaskID    string         `json:"task_id"`
	Timestamp string         `json:"timestamp"` // YYYY-MM-DD format
	User      string         `json:"user"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Logged reports whether the entry records a completion.
func (e CompletionLogEntry) Logged() bool {
	return e.Timestamp != "" && e.User != ""
}

// Display renders the entry as "2024-03-04・Bob", or "" when nothing is logged.
func (e CompletionLogEntry) Display() string {
	if !e.Logged() {
		return ""
	}
	return e.Timestamp + constants.LogDisplaySeparator + e.User
}

// LogFromDocument rebuilds an entry from a stored checks document. Fields
// other than timestamp and user are kept in Extra.
func LogFromDocument(taskID string, doc map[string]any) CompletionLogEntry {
	e := CompletionLogEntry{
		TaskID:    taskID,
		Timestamp: StringField(doc, FieldTimestamp),
		User:      StringField(doc, FieldUser),
	}
	for k, v := range doc {
		if k == FieldTimestamp || k == FieldUser {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = v
	}
	return e
}

// CheckInFields is the partial document merged into a log entry on check-in.
func CheckInFields(date, user string) map[string]any {
	return map[string]any{
		FieldTimestamp: date,
		FieldUser:      user,
	}
}
