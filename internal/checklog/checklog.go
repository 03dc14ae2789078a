// Package checklog reconciles the run sheet of a tier with its completion
// log. Checking a row only flips a transient flag; Save turns the flags
// into one atomic batch of log writes.
package checklog

import (
	"context"
	"fmt"
	"strings"

	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recurrence"
	"github.com/julianstephens/tenken/internal/utils"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPolicies sets how each tier initializes its checked flags.
func WithPolicies(fn func(models.Tier) models.CheckPolicy) Option {
	return func(r *Reconciler) { r.policy = fn }
}

type Reconciler struct {
	store  recordstore.Store
	policy func(models.Tier) models.CheckPolicy
}

func New(store recordstore.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		policy: models.Tier.DefaultCheckPolicy,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Row is one visible task of a run sheet with its latest completion.
type Row struct {
	Task    models.MaintenanceTask
	Log     models.CompletionLogEntry
	Checked bool

	stored  bool
	initial bool
}

// HasLog reports whether the task has a stored log entry.
func (r Row) HasLog() bool { return r.stored }

// Display renders the latest completion, e.g. "2024-03-04・Bob".
func (r Row) Display() string {
	if !r.stored {
		return ""
	}
	return r.Log.Display()
}

// Sheet is the run view of one tier.
type Sheet struct {
	tier    models.Tier
	policy  models.CheckPolicy
	rows    []Row
	version int
}

// Open loads the visible tasks of tier and their completion logs.
func (r *Reconciler) Open(ctx context.Context, tier models.Tier) (*Sheet, error) {
	records, err := r.store.List(ctx, tier.SettingsCollection())
	if err != nil {
		logger.Error("Failed to load run sheet", "tier", tier, "error", err)
		return nil, fmt.Errorf("open %s run sheet: %w: %w", tier, apperr.ErrStoreUnavailable, err)
	}
	tasks := make([]models.MaintenanceTask, 0, len(records))
	for _, rec := range records {
		t := models.TaskFromDocument(tier, rec.ID, rec.Fields)
		if t.Visible {
			tasks = append(tasks, t)
		}
	}
	recurrence.SortDefault(tasks)

	logs, err := r.fetchLogs(ctx, tier)
	if err != nil {
		logger.Error("Failed to load completion logs", "tier", tier, "error", err)
		return nil, fmt.Errorf("open %s run sheet: %w: %w", tier, apperr.ErrStoreUnavailable, err)
	}

	s := &Sheet{tier: tier, policy: r.policy(tier)}
	for _, t := range tasks {
		row := Row{Task: t}
		if entry, ok := logs[t.ID]; ok {
			row.Log, row.stored = entry, true
		}
		if s.policy == models.PolicyFromLog {
			row.Checked = row.stored && row.Log.Logged()
		}
		row.initial = row.Checked
		s.rows = append(s.rows, row)
	}
	logger.Debug("Run sheet opened", "tier", tier, "rows", len(s.rows), "policy", s.policy)
	return s, nil
}

func (r *Reconciler) fetchLogs(ctx context.Context, tier models.Tier) (map[string]models.CompletionLogEntry, error) {
	records, err := r.store.List(ctx, tier.ChecksCollection())
	if err != nil {
		return nil, err
	}
	logs := make(map[string]models.CompletionLogEntry, len(records))
	for _, rec := range records {
		logs[rec.ID] = models.LogFromDocument(rec.ID, rec.Fields)
	}
	return logs, nil
}

// Writes returns the batch Save would issue for user on today.
func (s *Sheet) Writes(user, today string) []recordstore.Write {
	checks := s.tier.ChecksCollection()
	var writes []recordstore.Write
	for _, row := range s.rows {
		switch {
		case row.Checked:
			writes = append(writes, recordstore.MergeSet(checks, row.Task.ID, models.CheckInFields(today, user)))
		case row.initial && row.stored:
			writes = append(writes, recordstore.Remove(checks, row.Task.ID))
		}
	}
	return writes
}

// Save checks in every checked row as user on today and clears the entries
// of rows unchecked since the sheet opened, as one batch. On failure the
// logs are re-read and the flags kept so the save can be retried.
func (r *Reconciler) Save(ctx context.Context, s *Sheet, user, today string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return &apperr.MissingFieldError{Field: models.FieldUser}
	}
	if !utils.ValidateDate(today) {
		return &apperr.InvalidFieldError{Field: models.FieldTimestamp, Value: today}
	}

	writes := s.Writes(user, today)
	if len(writes) == 0 {
		return apperr.ErrNothingToSave
	}

	if err := r.store.Batch(ctx, writes); err != nil {
		bwe := &apperr.BatchWriteError{Op: fmt.Sprintf("save %s check-ins", s.tier), Writes: len(writes), Err: err}
		if logs, rerr := r.fetchLogs(ctx, s.tier); rerr == nil {
			s.refresh(logs, true)
			bwe.Reloaded = true
		} else {
			logger.Warn("Failed to reload completion logs after failed save", "tier", s.tier, "error", rerr)
		}
		logger.Error("Check-in save failed", "tier", s.tier, "writes", len(writes), "error", err)
		return bwe
	}

	for i := range s.rows {
		row := &s.rows[i]
		switch {
		case row.Checked:
			row.Log.TaskID = row.Task.ID
			row.Log.Timestamp, row.Log.User = today, user
			row.stored = true
		case row.initial && row.stored:
			row.Log, row.stored = models.CompletionLogEntry{}, false
		}
		row.initial = row.Checked
	}
	s.version++
	logger.Info("Check-ins saved", "tier", s.tier, "writes", len(writes), "user", user)
	return nil
}

// Reload re-reads the completion logs of the sheet's tier. With keepFlags
// the operator's flags survive; otherwise they are re-initialized by policy.
func (r *Reconciler) Reload(ctx context.Context, s *Sheet, keepFlags bool) error {
	logs, err := r.fetchLogs(ctx, s.tier)
	if err != nil {
		return fmt.Errorf("reload %s logs: %w: %w", s.tier, apperr.ErrStoreUnavailable, err)
	}
	s.refresh(logs, keepFlags)
	return nil
}

// Clear deletes the completion log of one task outside of any sheet.
func (r *Reconciler) Clear(ctx context.Context, tier models.Tier, id string) error {
	if err := r.store.Delete(ctx, tier.ChecksCollection(), id); err != nil {
		return fmt.Errorf("clear %s log %s: %w: %w", tier, id, apperr.ErrStoreUnavailable, err)
	}
	logger.Info("Completion log cleared", "tier", tier, "id", id)
	return nil
}

func (s *Sheet) refresh(logs map[string]models.CompletionLogEntry, keepFlags bool) {
	for i := range s.rows {
		row := &s.rows[i]
		row.Log, row.stored = logs[row.Task.ID]
		initial := s.policy == models.PolicyFromLog && row.stored && row.Log.Logged()
		row.initial = initial
		if !keepFlags {
			row.Checked = initial
		}
	}
	s.version++
}

// Tier returns the tier of the sheet.
func (s *Sheet) Tier() models.Tier { return s.tier }

// Policy returns the check policy the sheet was opened with.
func (s *Sheet) Policy() models.CheckPolicy { return s.policy }

// Version increments on every flag change or reload.
func (s *Sheet) Version() int { return s.version }

// Rows returns a copy of the sheet rows in display order.
func (s *Sheet) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Row returns the row of one task.
func (s *Sheet) Row(id string) (Row, bool) {
	if i := s.index(id); i >= 0 {
		return s.rows[i], true
	}
	return Row{}, false
}

func (s *Sheet) Check(id string) error   { return s.set(id, func(bool) bool { return true }) }
func (s *Sheet) Uncheck(id string) error { return s.set(id, func(bool) bool { return false }) }
func (s *Sheet) Toggle(id string) error  { return s.set(id, func(v bool) bool { return !v }) }

func (s *Sheet) set(id string, fn func(bool) bool) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", apperr.ErrTaskNotFound, id)
	}
	s.rows[i].Checked = fn(s.rows[i].Checked)
	s.version++
	return nil
}

// Dirty reports whether any flag differs from its value at open or last save.
func (s *Sheet) Dirty() bool {
	for _, row := range s.rows {
		if row.Checked != row.initial {
			return true
		}
	}
	return false
}

// Checked returns the ids of the checked rows.
func (s *Sheet) Checked() []string {
	var ids []string
	for _, row := range s.rows {
		if row.Checked {
			ids = append(ids, row.Task.ID)
		}
	}
	return ids
}

// Sort reorders the rows by a task column.
func (s *Sheet) Sort(col recurrence.Column) {
	tasks := make([]models.MaintenanceTask, len(s.rows))
	byID := make(map[string]Row, len(s.rows))
	for i, row := range s.rows {
		tasks[i] = row.Task
		byID[row.Task.ID] = row
	}
	recurrence.Sort(tasks, col)
	for i, t := range tasks {
		s.rows[i] = byID[t.ID]
	}
	s.version++
}

func (s *Sheet) index(id string) int {
	for i, row := range s.rows {
		if row.Task.ID == id {
			return i
		}
	}
	return -1
}
