package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tenken/internal/catalog"
	"github.com/julianstephens/tenken/internal/checklog"
	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/memo"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
	"github.com/julianstephens/tenken/internal/tui/components/checksheet"
	"github.com/julianstephens/tenken/internal/tui/components/tasklist"
)

const today = "2024-03-04"

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, store *memory.Store) Model {
	t.Helper()
	m := NewModel(Deps{
		Catalog:    catalog.New(store),
		Reconciler: checklog.New(store),
		Memos:      memo.New(store),
		User:       "Ann",
		Today:      func() string { return today },
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func seedDaily(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "dailySettings", "d1",
		recordstore.Document{"item": "Filter", "place": "RoomA", "day": "月", "visible": true}, false))
	require.NoError(t, store.Set(ctx, "dailySettings", "d2",
		recordstore.Document{"item": "Lamp", "place": "Lobby", "day": "未選択", "visible": false}, false))
}

func press(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

// pressEmit presses a key handled by a list component and feeds the
// message it emits back into the model.
func pressEmit(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := press(m, k)
	require.NotNil(t, cmd, "key %q emitted nothing", k.String())
	msg := cmd()
	switch msg.(type) {
	case tasklist.AddTaskMsg, tasklist.EditTaskMsg, tasklist.DeleteTaskMsg,
		tasklist.ToggleVisibleMsg, tasklist.EditLinkMsg, checksheet.ToggleCheckMsg:
	default:
		t.Fatalf("unexpected message %T", msg)
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNewModel_LoadsDailySettings(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	_, err := memo.New(store).Add(context.Background(), "Elevator inspection", "2024-03-01", "2024-03-10")
	require.NoError(t, err)

	m := newTestModel(t, store)

	assert.Equal(t, models.TierDaily, m.tier)
	assert.Equal(t, constants.StateSettings, m.state)
	sel, ok := m.taskList.Selected()
	require.True(t, ok)
	assert.Equal(t, "d2", sel.ID, "Lobby sorts before RoomA")
	require.Len(t, m.memos, 1)
	assert.Contains(t, m.View(), "Elevator inspection")
}

func TestToggleVisible_DirtyNavigationAsksToDiscard(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("v"))
	require.True(t, m.dirty())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, constants.StateConfirm, m.state)
	assert.Equal(t, models.TierDaily, m.tier)

	// Declining keeps the edit and the tier
	m.resolveConfirm(false)
	assert.Equal(t, constants.StateSettings, m.state)
	assert.Equal(t, models.TierDaily, m.tier)
	assert.True(t, m.dirty())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m.resolveConfirm(true)
	assert.Equal(t, models.TierWeekly, m.tier)
	assert.False(t, m.dirty())

	doc, err := store.Get(context.Background(), "dailySettings", "d2")
	require.NoError(t, err)
	assert.Equal(t, false, doc["visible"], "discarded edit never reached the store")
}

func TestCleanNavigationSwitchesImmediately(t *testing.T) {
	m := newTestModel(t, memory.New())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, models.TierYearly, m.tier)
	assert.Equal(t, constants.StateSettings, m.state)

	m, _ = press(m, runes("m"))
	assert.Equal(t, constants.StateRun, m.mode)
	assert.Equal(t, constants.StateRun, m.state)
}

func TestSettingsSave(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("v"))
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Empty(t, m.errMsg)
	assert.Contains(t, m.status, "Saved daily settings")
	assert.False(t, m.dirty())
	doc, err := store.Get(context.Background(), "dailySettings", "d2")
	require.NoError(t, err)
	assert.Equal(t, true, doc["visible"])

	empty := newTestModel(t, memory.New())
	empty, _ = press(empty, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "Nothing to save", empty.status)
}

func TestDelete_ConfirmThenSave(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("d"))
	require.Equal(t, constants.StateConfirm, m.state)
	assert.Contains(t, m.confirmTitle, "Lamp / Lobby")

	m.resolveConfirm(true)
	assert.Equal(t, constants.StateSettings, m.state)
	_, ok := m.deps.Catalog.Task("d2")
	assert.False(t, ok)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	_, err := store.Get(context.Background(), "dailySettings", "d2")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
}

func TestRunMode_CheckAndSave(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m, _ = press(m, runes("m"))
	require.NotNil(t, m.sheet)
	require.Len(t, m.sheet.Rows(), 1, "only visible tasks are listed")

	m = pressEmit(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	row, _ := m.sheet.Row("d1")
	require.True(t, row.Checked)
	require.True(t, m.dirty())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Empty(t, m.errMsg)
	assert.False(t, m.dirty())

	doc, err := store.Get(context.Background(), "dailyChecks", "d1")
	require.NoError(t, err)
	assert.Equal(t, today, doc["timestamp"])
	assert.Equal(t, "Ann", doc["user"])
}

func TestRunMode_SaveWithoutUserFails(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)
	m.deps.User = ""

	m, _ = press(m, runes("m"))
	m = pressEmit(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Contains(t, m.errMsg, "user is required")
	assert.Equal(t, 0, store.Calls(memory.OpBatch))
	assert.True(t, m.dirty(), "check flags survive a rejected save")
}

func TestLoadFailureIsReported(t *testing.T) {
	store := memory.New()
	store.Fail(memory.OpList, assert.AnError)
	m := newTestModel(t, store)

	assert.NotEmpty(t, m.errMsg)
	assert.False(t, m.deps.Catalog.Loaded())
	_, ok := m.taskList.Selected()
	assert.False(t, ok)
}

func TestSortCycles(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m, _ = press(m, runes("o"))
	assert.Equal(t, "Sorted by place", m.status)
	m, _ = press(m, runes("o"))
	assert.Equal(t, "Sorted by item", m.status)
	sel, _ := m.taskList.Selected()
	assert.Equal(t, "d1", sel.ID, "Filter sorts before Lamp")
	assert.False(t, m.dirty(), "sorting is not an edit")
}

func TestAddForm(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("a"))
	require.Equal(t, constants.StateEditing, m.state)

	m.taskForm.Item, m.taskForm.Place, m.taskForm.Day = "Filter", "RoomA", "火"
	m.submitForm()
	assert.Equal(t, constants.StateEditing, m.state, "duplicate keeps the form open")
	assert.Contains(t, m.errMsg, "already exists")

	m.taskForm.Place = "RoomB"
	m.submitForm()
	assert.Equal(t, constants.StateSettings, m.state)
	assert.Empty(t, m.errMsg)
	assert.Len(t, m.deps.Catalog.Tasks(), 3)
	assert.True(t, m.dirty())
}

func TestAbortedAddFormKeepsDraft(t *testing.T) {
	m := newTestModel(t, memory.New())

	m = pressEmit(t, m, runes("a"))
	m.taskForm.Item = "Drain"
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, constants.StateSettings, m.state)
	assert.Equal(t, "Drain", m.deps.Catalog.Draft().Item)
	assert.True(t, m.dirty(), "a half-filled new task is unsaved work")

	m = pressEmit(t, m, runes("a"))
	assert.Equal(t, "Drain", m.taskForm.Item)
}

func TestEditForm(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("e"))
	require.Equal(t, constants.StateEditing, m.state)
	require.Equal(t, "d2", m.editingID)

	m.taskForm.Day = "金"
	m.taskForm.Visible = true
	m.submitForm()

	got, ok := m.deps.Catalog.Task("d2")
	require.True(t, ok)
	assert.Equal(t, "金", got.Slot.Day)
	assert.True(t, got.Visible)
	assert.Equal(t, "Lamp", got.Item)
}

func TestLinkForm(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m = pressEmit(t, m, runes("l"))
	require.Equal(t, constants.StateEditing, m.state)
	m.linkForm.URL = "https://example.com/lamp.pdf"
	m.submitForm()

	got, _ := m.deps.Catalog.Task("d2")
	require.NotNil(t, got.Link)
	assert.Equal(t, constants.DefaultLinkLabel, got.Link.Label)

	m = pressEmit(t, m, runes("l"))
	assert.Equal(t, "https://example.com/lamp.pdf", m.linkForm.URL)
	m.linkForm.URL = "https://example.com/lamp-v2.pdf"
	m.linkForm.Label = "Manual"
	m.submitForm()

	got, _ = m.deps.Catalog.Task("d2")
	assert.Equal(t, "Manual", got.Link.Label)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, memory.New())

	m, cmd := press(m, runes("q"))
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRunMode_FailedSaveKeepsChecksAndGuards(t *testing.T) {
	store := memory.New()
	seedDaily(t, store)
	m := newTestModel(t, store)

	m, _ = press(m, runes("m"))
	m = pressEmit(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	store.Fail(memory.OpBatch, assert.AnError)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.NotEmpty(t, m.errMsg)
	row, _ := m.sheet.Row("d1")
	assert.True(t, row.Checked)
	require.True(t, m.dirty())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, constants.StateConfirm, m.state)
	assert.Equal(t, models.TierDaily, m.tier)
}
