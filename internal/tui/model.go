package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tenken/internal/catalog"
	"github.com/julianstephens/tenken/internal/checklog"
	"github.com/julianstephens/tenken/internal/constants"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/memo"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recurrence"
	"github.com/julianstephens/tenken/internal/tui/components/checksheet"
	"github.com/julianstephens/tenken/internal/tui/components/tasklist"
)

// Deps are the services the TUI drives. Memos may be nil.
type Deps struct {
	Catalog    *catalog.Catalog
	Reconciler *checklog.Reconciler
	Memos      *memo.Board
	User       string
	Today      func() string
}

// PendingAction runs once the operator accepts a confirmation.
type PendingAction func(m *Model) tea.Cmd

type Model struct {
	ctx  context.Context
	deps Deps

	tier     models.Tier
	mode     constants.SessionState
	state    constants.SessionState
	keys     KeyMap
	help     help.Model
	taskList tasklist.Model
	runSheet checksheet.Model
	sheet    *checklog.Sheet
	sortCol  recurrence.Column
	memos    []models.Memo

	form             *huh.Form
	formKind         formKind
	taskForm         *TaskFormModel
	linkForm         *LinkFormModel
	editingID        string
	confirmTitle     string
	confirmationForm *ConfirmationFormModel
	pendingAction    PendingAction

	status   string
	errMsg   string
	quitting bool
	width    int
	height   int
}

func NewModel(deps Deps) Model {
	m := Model{
		ctx:      context.Background(),
		deps:     deps,
		tier:     models.TierDaily,
		mode:     constants.StateSettings,
		state:    constants.StateSettings,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		taskList: tasklist.New(nil, 0, 0),
		runSheet: checksheet.New(nil, 0, 0),
	}
	m.loadMemos()
	m.load()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Mode, m.keys.Save, m.keys.Sort, m.keys.Quit, m.keys.Help}
	switch m.mode {
	case constants.StateSettings:
		tk := tasklist.DefaultKeyMap()
		keys = append(keys, tk.Add, tk.Edit, tk.Delete, tk.Visible)
	case constants.StateRun:
		keys = append(keys, key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")))
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Mode, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Sort, m.keys.Reload}

	var actions []key.Binding
	switch m.mode {
	case constants.StateSettings:
		tk := tasklist.DefaultKeyMap()
		actions = []key.Binding{tk.Add, tk.Edit, tk.Delete, tk.Visible, tk.Link, m.keys.Save}
	case constants.StateRun:
		actions = []key.Binding{key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")), m.keys.Save}
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m *Model) today() string {
	if m.deps.Today == nil {
		return ""
	}
	return m.deps.Today()
}

func (m *Model) loadMemos() {
	if m.deps.Memos == nil {
		return
	}
	memos, err := m.deps.Memos.Active(m.ctx, m.today())
	if err != nil {
		logger.Warn("Failed to load memos", "error", err)
		return
	}
	m.memos = memos
}

// load reads the current tier in the current mode. A failed load leaves the
// view empty and reports the error on the status line.
func (m *Model) load() {
	m.errMsg = ""
	m.sortCol = ""
	switch m.mode {
	case constants.StateSettings:
		tasks, err := m.deps.Catalog.Load(m.ctx, m.tier)
		if err != nil {
			m.fail(err)
			tasks = nil
		}
		m.taskList.SetTasks(tasks)
	case constants.StateRun:
		sheet, err := m.deps.Reconciler.Open(m.ctx, m.tier)
		if err != nil {
			m.fail(err)
			m.sheet = nil
			m.runSheet.SetRows(nil)
			return
		}
		m.sheet = sheet
		m.runSheet.SetRows(sheet.Rows())
	}
}

func (m *Model) refresh() {
	switch m.mode {
	case constants.StateSettings:
		m.taskList.SetTasks(m.deps.Catalog.Tasks())
	case constants.StateRun:
		if m.sheet != nil {
			m.runSheet.SetRows(m.sheet.Rows())
		}
	}
}

// dirty reports unsaved work in the current view.
func (m *Model) dirty() bool {
	switch m.mode {
	case constants.StateSettings:
		return m.deps.Catalog.Loaded() && m.deps.Catalog.IsDirty()
	case constants.StateRun:
		return m.sheet != nil && m.sheet.Dirty()
	}
	return false
}

func (m *Model) discard() {
	switch m.mode {
	case constants.StateSettings:
		m.deps.Catalog.Discard()
	case constants.StateRun:
		m.sheet = nil
	}
}

func (m *Model) save() {
	var err error
	switch m.mode {
	case constants.StateSettings:
		err = m.deps.Catalog.Save(m.ctx)
	case constants.StateRun:
		if m.sheet == nil {
			err = apperr.ErrNotLoaded
			break
		}
		err = m.deps.Reconciler.Save(m.ctx, m.sheet, m.deps.User, m.today())
	}
	m.refresh()

	switch {
	case err == nil:
		m.errMsg = ""
		m.status = fmt.Sprintf("✓ Saved %s %s", m.tier, modeName(m.mode))
	case errors.Is(err, apperr.ErrNothingToSave):
		m.errMsg = ""
		m.status = "Nothing to save"
	default:
		m.fail(err)
	}
}

func (m *Model) fail(err error) {
	m.status = ""
	m.errMsg = err.Error()
	logger.Debug("TUI operation failed", "tier", m.tier, "mode", modeName(m.mode), "error", err)
}

// guard runs action now, or after a discard confirmation when the current
// view has unsaved work.
func (m *Model) guard(action PendingAction) tea.Cmd {
	if !m.dirty() {
		return action(m)
	}
	return m.confirm("Discard unsaved changes?", func(m *Model) tea.Cmd {
		m.discard()
		return action(m)
	})
}

func (m *Model) confirm(title string, action PendingAction) tea.Cmd {
	m.confirmTitle = title
	m.confirmationForm = &ConfirmationFormModel{}
	m.form = NewConfirmationForm(title, m.confirmationForm)
	m.pendingAction = action
	m.state = constants.StateConfirm
	return m.form.Init()
}

// resolveConfirm finishes a confirmation. Declining leaves everything as it was.
func (m *Model) resolveConfirm(accepted bool) tea.Cmd {
	action := m.pendingAction
	m.pendingAction = nil
	m.confirmationForm = nil
	m.form = nil
	m.state = m.mode
	if accepted && action != nil {
		return action(m)
	}
	return nil
}

func (m *Model) switchTier(step int) {
	idx := 0
	for i, t := range models.Tiers {
		if t == m.tier {
			idx = i
		}
	}
	idx = (idx + step + len(models.Tiers)) % len(models.Tiers)
	m.tier = models.Tiers[idx]
	m.status = ""
	m.load()
}

func (m *Model) switchMode() {
	if m.mode == constants.StateSettings {
		m.mode = constants.StateRun
	} else {
		m.mode = constants.StateSettings
	}
	m.state = m.mode
	m.status = ""
	m.load()
}

func (m *Model) cycleSort() {
	m.sortCol = recurrence.Next(m.tier, m.sortCol)
	switch m.mode {
	case constants.StateSettings:
		if !m.deps.Catalog.Loaded() {
			return
		}
		m.deps.Catalog.Sort(m.sortCol)
	case constants.StateRun:
		if m.sheet == nil {
			return
		}
		m.sheet.Sort(m.sortCol)
	}
	m.refresh()
	m.status = fmt.Sprintf("Sorted by %s", m.sortCol)
}

func modeName(s constants.SessionState) string {
	if s == constants.StateRun {
		return "run"
	}
	return "settings"
}
