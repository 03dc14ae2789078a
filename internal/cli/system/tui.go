package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/tui"
)

type TuiCmd struct {
	User string `help:"Operator name for check-ins (defaults to operator.name / TENKEN_USER)."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return err
	}
	ctx.PerformAutomaticBackup(ctx.Ctx())

	user, _ := ctx.User(c.User)
	m := tui.NewModel(tui.Deps{
		Catalog:    ctx.Catalog(),
		Reconciler: ctx.Reconciler(),
		Memos:      ctx.Memos(),
		User:       user,
		Today:      ctx.Today,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
