package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateSettings:
		content = docStyle.Render(m.taskList.View())
	case constants.StateRun:
		content = docStyle.Render(m.runSheet.View())
	case constants.StateEditing:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirm:
		content = m.viewConfirm()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewMemos(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	tabs := []string{modeStyle.Render(modeName(m.mode))}
	for _, t := range models.Tiers {
		if t == m.tier {
			tabs = append(tabs, activeTabStyle.Render(t.Title()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(t.Title()))
		}
	}
	if m.dirty() {
		tabs = append(tabs, dirtyStyle.Render(" ● unsaved"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewMemos() string {
	if len(m.memos) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.memos))
	for _, memo := range m.memos {
		lines = append(lines, memoStyle.Render(fmt.Sprintf("📌 %s (%s ~ %s)", memo.Text, memo.StartDate, memo.EndDate)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewStatus() string {
	switch {
	case m.errMsg != "":
		return dangerStyle.Render("❌ " + m.errMsg)
	case m.status != "":
		return statusStyle.Render(m.status)
	case m.mode == constants.StateRun && m.deps.User == "":
		return warningStyle.Render("⚠ No operator name set; saving check-ins will fail (use --user)")
	}
	return ""
}

func (m Model) viewConfirm() string {
	return lipgloss.Place(m.width, max(m.height-6, 0),
		lipgloss.Center, lipgloss.Center,
		m.form.View(),
	)
}
