package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/tui/components/checksheet"
	"github.com/julianstephens/tenken/internal/tui/components/tasklist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = msg.Width, msg.Height
		h, v := docStyle.GetFrameSize()
		m.help.Width = msg.Width
		m.taskList.SetSize(msg.Width-h, msg.Height-v-6)
		m.runSheet.SetSize(msg.Width-h, msg.Height-v-6)
		return m, nil
	}

	switch m.state {
	case constants.StateEditing:
		cmd := m.updateForm(msg)
		return m, cmd
	case constants.StateConfirm:
		cmd := m.updateConfirm(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tasklist.AddTaskMsg:
		m.openTaskForm(formAdd, models.MaintenanceTask{})
		return m, m.form.Init()
	case tasklist.EditTaskMsg:
		m.openTaskForm(formEdit, msg.Task)
		return m, m.form.Init()
	case tasklist.EditLinkMsg:
		m.openLinkForm(msg.Task)
		return m, m.form.Init()
	case tasklist.DeleteTaskMsg:
		t, ok := m.deps.Catalog.Task(msg.ID)
		if !ok {
			return m, nil
		}
		id := msg.ID
		title := fmt.Sprintf("Delete %s / %s? Its completion log goes with it on save.", t.Item, t.Place)
		cmd := m.confirm(title, func(m *Model) tea.Cmd {
			if _, err := m.deps.Catalog.Delete(id, nil); err != nil {
				m.fail(err)
			}
			m.refresh()
			return nil
		})
		return m, cmd
	case tasklist.ToggleVisibleMsg:
		if t, ok := m.deps.Catalog.Task(msg.ID); ok {
			if err := m.deps.Catalog.Update(msg.ID, models.FieldVisible, fmt.Sprintf("%t", !t.Visible)); err != nil {
				m.fail(err)
			}
			m.refresh()
		}
		return m, nil
	case checksheet.ToggleCheckMsg:
		if m.sheet != nil {
			if err := m.sheet.Toggle(msg.ID); err != nil {
				m.fail(err)
			}
			m.refresh()
		}
		return m, nil
	case tea.KeyMsg:
		if handled, cmd := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case constants.StateSettings:
		m.taskList, cmd = m.taskList.Update(msg)
	case constants.StateRun:
		m.runSheet, cmd = m.runSheet.Update(msg)
	}
	return m, cmd
}

func (m *Model) filtering() bool {
	if m.mode == constants.StateRun {
		return m.runSheet.Filtering()
	}
	return m.taskList.Filtering()
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return true, tea.Quit
	}
	if m.filtering() {
		return false, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, m.guard(func(m *Model) tea.Cmd {
			m.quitting = true
			return tea.Quit
		})
	case key.Matches(msg, m.keys.Tab):
		return true, m.guard(func(m *Model) tea.Cmd {
			m.switchTier(1)
			return nil
		})
	case key.Matches(msg, m.keys.ShiftTab):
		return true, m.guard(func(m *Model) tea.Cmd {
			m.switchTier(-1)
			return nil
		})
	case key.Matches(msg, m.keys.Mode):
		return true, m.guard(func(m *Model) tea.Cmd {
			m.switchMode()
			return nil
		})
	case key.Matches(msg, m.keys.Reload):
		return true, m.guard(func(m *Model) tea.Cmd {
			m.loadMemos()
			m.load()
			return nil
		})
	case key.Matches(msg, m.keys.Save):
		m.save()
		return true, nil
	case key.Matches(msg, m.keys.Sort):
		m.cycleSort()
		return true, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return true, nil
	}
	return false, nil
}

func (m *Model) openTaskForm(kind formKind, t models.MaintenanceTask) {
	m.formKind = kind
	m.errMsg = ""
	if kind == formAdd {
		m.editingID = ""
		m.taskForm = taskFormFromDraft(m.deps.Catalog.Draft())
		m.form = NewTaskForm(m.tier, fmt.Sprintf("New %s task", m.tier), m.taskForm)
	} else {
		m.editingID = t.ID
		m.taskForm = taskFormFromTask(t)
		m.form = NewTaskForm(m.tier, fmt.Sprintf("Edit %s / %s", t.Item, t.Place), m.taskForm)
	}
	m.state = constants.StateEditing
}

func (m *Model) openLinkForm(t models.MaintenanceTask) {
	m.formKind = formLink
	m.errMsg = ""
	m.editingID = t.ID
	m.linkForm = &LinkFormModel{}
	if t.Link != nil {
		m.linkForm.URL, m.linkForm.Label = t.Link.URL, t.Link.Label
	}
	m.form = NewLinkForm(m.linkForm)
	m.state = constants.StateEditing
}

func (m *Model) closeForm() {
	m.form = nil
	m.taskForm = nil
	m.linkForm = nil
	m.editingID = ""
	m.state = m.mode
}

func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.abortForm()
		return nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return tea.Batch(cmd, m.submitForm())
	case huh.StateAborted:
		m.abortForm()
	}
	return cmd
}

// abortForm leaves the form. An abandoned new-task form is kept as the
// catalog draft so it is offered again and counts as unsaved work.
func (m *Model) abortForm() {
	if m.formKind == formAdd && m.taskForm != nil {
		m.deps.Catalog.SetDraft(m.taskForm.Draft())
	}
	m.closeForm()
}

// submitForm applies a completed form to the working copy. On a validation
// error the form is rebuilt with the entered values for another try.
func (m *Model) submitForm() tea.Cmd {
	var err error
	switch m.formKind {
	case formAdd:
		var t models.MaintenanceTask
		t, err = m.deps.Catalog.Add(m.taskForm.Draft())
		if err == nil {
			m.status = fmt.Sprintf("Added %s / %s (unsaved)", t.Item, t.Place)
		}
	case formEdit:
		err = m.applyEdit()
	case formLink:
		err = m.applyLink()
	}

	if err != nil {
		m.errMsg = err.Error()
		switch m.formKind {
		case formLink:
			m.form = NewLinkForm(m.linkForm)
		default:
			m.form = NewTaskForm(m.tier, "Fix and resubmit", m.taskForm)
		}
		return m.form.Init()
	}

	m.errMsg = ""
	m.closeForm()
	m.refresh()
	return nil
}

func (m *Model) applyEdit() error {
	current, ok := m.deps.Catalog.Task(m.editingID)
	if !ok {
		return fmt.Errorf("task %s no longer exists", m.editingID)
	}
	before := taskFormFromTask(current)

	fields := []string{models.FieldItem, models.FieldPlace}
	for _, f := range m.tier.SlotFields() {
		fields = append(fields, string(f))
	}
	fields = append(fields, models.FieldVisible)

	for _, field := range fields {
		v := m.taskForm.Value(field)
		if v == before.Value(field) {
			continue
		}
		if err := m.deps.Catalog.Update(m.editingID, field, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) applyLink() error {
	t, ok := m.deps.Catalog.Task(m.editingID)
	if !ok {
		return fmt.Errorf("task %s no longer exists", m.editingID)
	}
	link := models.ReferenceLink{URL: m.linkForm.URL, Label: m.linkForm.Label}
	if link.Label == "" {
		link.Label = constants.DefaultLinkLabel
	}
	if t.Link == nil {
		return m.deps.Catalog.AttachLink(m.editingID, link)
	}
	return m.deps.Catalog.ChangeLink(m.editingID, link)
}

func (m *Model) updateConfirm(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		return m.resolveConfirm(false)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return tea.Batch(cmd, m.resolveConfirm(m.confirmationForm.Confirmed))
	case huh.StateAborted:
		return m.resolveConfirm(false)
	}
	return cmd
}
