// Package catalog manages the settings catalog of one tier: a snapshot of
// the stored tasks, an in-memory working copy the operator edits, and the
// batch that persists the difference.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recurrence"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithIDGenerator replaces the uuid generator used for new tasks.
func WithIDGenerator(fn func() string) Option {
	return func(c *Catalog) { c.newID = fn }
}

// WithBackup registers a hook run before any save that deletes tasks. A
// failing hook is logged and does not block the save.
func WithBackup(fn func(ctx context.Context) error) Option {
	return func(c *Catalog) { c.backup = fn }
}

type Catalog struct {
	store   recordstore.Store
	tier    models.Tier
	loaded  bool
	version int

	snapshot []models.MaintenanceTask
	working  []models.MaintenanceTask
	// deleted holds snapshot ids removed from the working copy; their
	// records and log entries go out with the next save.
	deleted []string
	draft   models.TaskDraft

	newID  func() string
	backup func(ctx context.Context) error
}

func New(store recordstore.Store, opts ...Option) *Catalog {
	c := &Catalog{
		store: store,
		draft: models.NewDraft(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the tier's catalog and installs it, in default order, as
// both snapshot and working copy. On failure the catalog is left unloaded
// rather than empty.
func (c *Catalog) Load(ctx context.Context, tier models.Tier) ([]models.MaintenanceTask, error) {
	c.tier = tier
	c.loaded = false
	c.snapshot, c.working, c.deleted = nil, nil, nil
	c.draft = models.NewDraft()
	c.version++

	tasks, err := fetch(ctx, c.store, tier)
	if err != nil {
		logger.Error("Failed to load catalog", "tier", tier, "error", err)
		return nil, fmt.Errorf("load %s catalog: %w: %w", tier, apperr.ErrStoreUnavailable, err)
	}

	c.snapshot = tasks
	c.working = cloneAll(tasks)
	c.loaded = true
	logger.Debug("Catalog loaded", "tier", tier, "count", len(tasks))
	return c.Tasks(), nil
}

func fetch(ctx context.Context, store recordstore.Store, tier models.Tier) ([]models.MaintenanceTask, error) {
	records, err := store.List(ctx, tier.SettingsCollection())
	if err != nil {
		return nil, err
	}
	tasks := make([]models.MaintenanceTask, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, models.TaskFromDocument(tier, r.ID, r.Fields))
	}
	recurrence.SortDefault(tasks)
	return tasks, nil
}

// Tier returns the tier last passed to Load.
func (c *Catalog) Tier() models.Tier { return c.tier }

// Loaded reports whether the last Load succeeded.
func (c *Catalog) Loaded() bool { return c.loaded }

// Version increments on every change to the working copy or draft.
func (c *Catalog) Version() int { return c.version }

// Tasks returns a copy of the working copy in its current order.
func (c *Catalog) Tasks() []models.MaintenanceTask {
	return cloneAll(c.working)
}

// Task returns one task of the working copy.
func (c *Catalog) Task(id string) (models.MaintenanceTask, bool) {
	if i := c.index(id); i >= 0 {
		return c.working[i].Clone(), true
	}
	return models.MaintenanceTask{}, false
}

// Draft returns the new-task form.
func (c *Catalog) Draft() models.TaskDraft { return c.draft }

// SetDraft replaces the new-task form.
func (c *Catalog) SetDraft(d models.TaskDraft) {
	c.draft = d
	c.version++
}

// Add validates draft and appends it to the working copy under a fresh id.
// (item, place) must be unique within the working copy.
func (c *Catalog) Add(draft models.TaskDraft) (models.MaintenanceTask, error) {
	if !c.loaded {
		return models.MaintenanceTask{}, apperr.ErrNotLoaded
	}

	item, place := strings.TrimSpace(draft.Item), strings.TrimSpace(draft.Place)
	if item == "" {
		return models.MaintenanceTask{}, &apperr.MissingFieldError{Field: models.FieldItem}
	}
	if place == "" {
		return models.MaintenanceTask{}, &apperr.MissingFieldError{Field: models.FieldPlace}
	}

	slot := models.UnselectedSlot()
	for _, f := range c.tier.SlotFields() {
		v := draft.Slot.Get(f)
		if !f.Valid(v) {
			return models.MaintenanceTask{}, &apperr.InvalidFieldError{Field: string(f), Value: v}
		}
		slot = slot.With(f, v)
	}

	for _, t := range c.working {
		if t.Item == item && t.Place == place {
			return models.MaintenanceTask{}, &apperr.DuplicateTaskError{
				Tier: string(c.tier), Item: item, Place: place, ExistingID: t.ID,
			}
		}
	}

	task := models.MaintenanceTask{
		ID:      c.newID(),
		Tier:    c.tier,
		Item:    item,
		Place:   place,
		Slot:    slot,
		Visible: draft.Visible,
	}
	c.working = append(c.working, task)
	c.draft = models.NewDraft()
	c.version++
	logger.Debug("Task added", "tier", c.tier, "id", task.ID)
	return task.Clone(), nil
}

// Update sets one field of a working-copy task. value is parsed per field:
// slot labels (or their aliases) for day/week/month, a boolean for visible.
func (c *Catalog) Update(id, field, value string) error {
	if !c.loaded {
		return apperr.ErrNotLoaded
	}
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", apperr.ErrTaskNotFound, id)
	}
	t := &c.working[i]

	switch field {
	case models.FieldItem, models.FieldPlace:
		v := strings.TrimSpace(value)
		if v == "" {
			return &apperr.MissingFieldError{Field: field}
		}
		if field == models.FieldItem {
			t.Item = v
		} else {
			t.Place = v
		}
	case string(models.SlotDay), string(models.SlotWeek), string(models.SlotMonth):
		f := models.SlotField(field)
		if !c.tier.HasSlotField(f) {
			return &apperr.InvalidFieldError{Field: field}
		}
		v, err := f.Parse(value)
		if err != nil {
			return &apperr.InvalidFieldError{Field: field, Value: value}
		}
		t.Slot = t.Slot.With(f, v)
	case models.FieldVisible:
		v, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return &apperr.InvalidFieldError{Field: field, Value: value}
		}
		t.Visible = v
	default:
		return &apperr.InvalidFieldError{Field: field}
	}

	c.version++
	return nil
}

// AttachLink sets the reference link of a task that has none.
func (c *Catalog) AttachLink(id string, link models.ReferenceLink) error {
	return c.setLink(id, link, false)
}

// ChangeLink replaces the reference link of a task that already has one.
func (c *Catalog) ChangeLink(id string, link models.ReferenceLink) error {
	return c.setLink(id, link, true)
}

func (c *Catalog) setLink(id string, link models.ReferenceLink, change bool) error {
	if !c.loaded {
		return apperr.ErrNotLoaded
	}
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", apperr.ErrTaskNotFound, id)
	}
	link.URL = strings.TrimSpace(link.URL)
	if link.URL == "" {
		return &apperr.MissingFieldError{Field: models.FieldFileURL}
	}

	t := &c.working[i]
	switch {
	case !change && t.Link != nil:
		return apperr.ErrLinkAlreadySet
	case change && t.Link == nil:
		return apperr.ErrLinkNotSet
	}
	t.Link = &link
	c.version++
	return nil
}

// Delete asks confirm and, when accepted, removes the task from the working
// copy. The stored record and its completion log are deleted on Save.
func (c *Catalog) Delete(id string, confirm func(models.MaintenanceTask) bool) (bool, error) {
	if !c.loaded {
		return false, apperr.ErrNotLoaded
	}
	i := c.index(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", apperr.ErrTaskNotFound, id)
	}
	if confirm != nil && !confirm(c.working[i].Clone()) {
		return false, nil
	}

	c.working = append(c.working[:i], c.working[i+1:]...)
	if c.inSnapshot(id) {
		c.deleted = append(c.deleted, id)
	}
	c.version++
	logger.Debug("Task scheduled for deletion", "tier", c.tier, "id", id)
	return true, nil
}

// Sort reorders the working copy. Order never affects dirtiness.
func (c *Catalog) Sort(col recurrence.Column) {
	recurrence.Sort(c.working, col)
	c.version++
}

// IsDirty reports unsaved edits in the working copy or the draft.
func (c *Catalog) IsDirty() bool {
	return IsDirty(c.working, c.snapshot, c.draft)
}

// Discard drops every unsaved edit.
func (c *Catalog) Discard() {
	c.working = cloneAll(c.snapshot)
	c.deleted = nil
	c.draft = models.NewDraft()
	c.version++
}

// Save writes the whole working copy (replacing stored records) plus the
// scheduled deletions and their completion logs as one batch. On failure
// the snapshot is re-fetched and the working copy kept for a retry.
func (c *Catalog) Save(ctx context.Context) error {
	if !c.loaded {
		return apperr.ErrNotLoaded
	}

	writes := c.writes()
	if len(writes) == 0 {
		return apperr.ErrNothingToSave
	}

	if len(c.deleted) > 0 && c.backup != nil {
		if err := c.backup(ctx); err != nil {
			logger.Warn("Automatic backup failed", "error", err)
		}
	}

	if err := c.store.Batch(ctx, writes); err != nil {
		bwe := &apperr.BatchWriteError{Op: fmt.Sprintf("save %s catalog", c.tier), Writes: len(writes), Err: err}
		if tasks, rerr := fetch(ctx, c.store, c.tier); rerr == nil {
			c.snapshot = tasks
			bwe.Reloaded = true
		} else {
			logger.Warn("Failed to reload catalog after failed save", "tier", c.tier, "error", rerr)
		}
		logger.Error("Catalog save failed", "tier", c.tier, "writes", len(writes), "error", err)
		return bwe
	}

	c.snapshot = cloneAll(c.working)
	c.deleted = nil
	c.version++
	logger.Info("Catalog saved", "tier", c.tier, "writes", len(writes))
	return nil
}

func (c *Catalog) writes() []recordstore.Write {
	settings, checks := c.tier.SettingsCollection(), c.tier.ChecksCollection()
	writes := make([]recordstore.Write, 0, len(c.working)+2*len(c.deleted))
	for _, t := range c.working {
		writes = append(writes, recordstore.Set(settings, t.ID, t.Document()))
	}
	for _, id := range c.deleted {
		writes = append(writes, recordstore.Remove(settings, id), recordstore.Remove(checks, id))
	}
	return writes
}

// Diff compares the working copy with the snapshot.
func (c *Catalog) Diff() Diff {
	return computeDiff(c.working, c.snapshot)
}

func (c *Catalog) index(id string) int {
	for i, t := range c.working {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) inSnapshot(id string) bool {
	for _, t := range c.snapshot {
		if t.ID == id {
			return true
		}
	}
	return false
}

func cloneAll(tasks []models.MaintenanceTask) []models.MaintenanceTask {
	if tasks == nil {
		return nil
	}
	out := make([]models.MaintenanceTask, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
