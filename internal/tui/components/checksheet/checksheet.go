// Package checksheet renders a run sheet: the visible tasks of a tier with
// their check flags and last completion.
package checksheet

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tenken/internal/checklog"
)

type ToggleCheckMsg struct {
	ID string
}

type Item struct {
	Row checklog.Row
}

func (i Item) Title() string {
	box := "[ ]"
	if i.Row.Checked {
		box = "[✓]"
	}
	return fmt.Sprintf("%s %s / %s", box, i.Row.Task.Item, i.Row.Task.Place)
}

func (i Item) Description() string {
	desc := i.Row.Task.Slot.Format(i.Row.Task.Tier)
	if last := i.Row.Display(); last != "" {
		desc += " | last: " + last
	}
	if i.Row.Task.Link != nil {
		desc += " | " + i.Row.Task.Link.Label + ": " + i.Row.Task.Link.URL
	}
	return desc
}

func (i Item) FilterValue() string { return i.Row.Task.Item + " " + i.Row.Task.Place }

type Model struct {
	list   list.Model
	toggle key.Binding
}

func New(rows []checklog.Row, width, height int) Model {
	l := list.New(items(rows), list.NewDefaultDelegate(), width, height)
	l.Title = "Run"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	toggle := key.NewBinding(
		key.WithKeys(" ", "space", "x"),
		key.WithHelp("space", "check/uncheck"),
	)
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{toggle} }
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	return Model{list: l, toggle: toggle}
}

func items(rows []checklog.Row) []list.Item {
	out := make([]list.Item, len(rows))
	for i, r := range rows {
		out[i] = Item{Row: r}
	}
	return out
}

// SetRows replaces the rows, keeping the cursor where it was when possible.
func (m *Model) SetRows(rows []checklog.Row) {
	idx := m.list.Index()
	m.list.SetItems(items(rows))
	if idx >= len(rows) {
		idx = len(rows) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m Model) Selected() (checklog.Row, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Row, true
	}
	return checklog.Row{}, false
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() && key.Matches(msg, m.toggle) {
		if r, ok := m.Selected(); ok {
			return m, func() tea.Msg { return ToggleCheckMsg{ID: r.Task.ID} }
		}
		return m, nil
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No visible tasks.\n  Show tasks from the settings view first."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
