package catalog

import (
	"encoding/json"
	"sort"

	"github.com/julianstephens/tenken/internal/models"
)

// Diff lists the working-copy changes against the snapshot.
type Diff struct {
	Added   []models.MaintenanceTask
	Changed []models.MaintenanceTask
	Removed []models.MaintenanceTask
}

// Empty reports whether the diff holds no change.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// IsDirty reports whether working differs from snapshot, ignoring order, or
// the draft holds any non-default value. It is recomputed on every call.
func IsDirty(working, snapshot []models.MaintenanceTask, draft models.TaskDraft) bool {
	if !draft.IsZero() {
		return true
	}
	return Canonical(working) != Canonical(snapshot)
}

type canonicalTask struct {
	ID  string         `json:"id"`
	Doc map[string]any `json:"doc"`
}

// Canonical serializes tasks sorted by id in their stored shape.
func Canonical(tasks []models.MaintenanceTask) string {
	out := make([]canonicalTask, len(tasks))
	for i, t := range tasks {
		out[i] = canonicalTask{ID: t.ID, Doc: t.Document()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	data, err := json.Marshal(out)
	if err != nil {
		// Documents hold only strings and bools.
		panic(err)
	}
	return string(data)
}

func computeDiff(working, snapshot []models.MaintenanceTask) Diff {
	before := make(map[string]models.MaintenanceTask, len(snapshot))
	for _, t := range snapshot {
		before[t.ID] = t
	}

	var d Diff
	seen := make(map[string]bool, len(working))
	for _, t := range working {
		seen[t.ID] = true
		old, ok := before[t.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, t.Clone())
		case Canonical([]models.MaintenanceTask{old}) != Canonical([]models.MaintenanceTask{t}):
			d.Changed = append(d.Changed, t.Clone())
		}
	}
	for _, t := range snapshot {
		if !seen[t.ID] {
			d.Removed = append(d.Removed, t.Clone())
		}
	}
	return d
}
