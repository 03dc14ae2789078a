package tasklist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tenken/internal/models"
)

type AddTaskMsg struct{}

type EditTaskMsg struct {
	Task models.MaintenanceTask
}

type DeleteTaskMsg struct {
	ID string
}

type ToggleVisibleMsg struct {
	ID string
}

type EditLinkMsg struct {
	Task models.MaintenanceTask
}

type Item struct {
	Task models.MaintenanceTask
}

func (i Item) Title() string {
	title := fmt.Sprintf("%s / %s", i.Task.Item, i.Task.Place)
	if !i.Task.Visible {
		title = "⊘ " + title
	}
	return title
}

func (i Item) Description() string {
	desc := i.Task.Slot.Format(i.Task.Tier)
	if i.Task.Visible {
		desc += " | shown"
	} else {
		desc += " | hidden"
	}
	if i.Task.Link != nil {
		desc += " | " + i.Task.Link.Label
	}
	return desc
}

func (i Item) FilterValue() string { return i.Task.Item + " " + i.Task.Place }

type KeyMap struct {
	Add     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Visible key.Binding
	Link    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Visible: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "show/hide"),
		),
		Link: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "link"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(tasks []models.MaintenanceTask, width, height int) Model {
	l := list.New(items(tasks), list.NewDefaultDelegate(), width, height)
	l.Title = "Settings"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Edit, keys.Delete, keys.Visible, keys.Link}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	return Model{list: l, keys: keys}
}

func items(tasks []models.MaintenanceTask) []list.Item {
	out := make([]list.Item, len(tasks))
	for i, t := range tasks {
		out[i] = Item{Task: t}
	}
	return out
}

// SetTasks replaces the rows, keeping the cursor where it was when possible.
func (m *Model) SetTasks(tasks []models.MaintenanceTask) {
	idx := m.list.Index()
	m.list.SetItems(items(tasks))
	if idx >= len(tasks) {
		idx = len(tasks) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m Model) Selected() (models.MaintenanceTask, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Task, true
	}
	return models.MaintenanceTask{}, false
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddTaskMsg{} }
		case key.Matches(msg, m.keys.Edit):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditTaskMsg{Task: t} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteTaskMsg{ID: t.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Visible):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleVisibleMsg{ID: t.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Link):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditLinkMsg{Task: t} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No tasks yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
