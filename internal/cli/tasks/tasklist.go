package tasks

import (
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recurrence"
)

type TaskListCmd struct {
	Tier        string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	Sort        string `short:"s" help:"Sort column (place|item|day|week|month|slot|visible)."`
	VisibleOnly bool   `help:"Show only tasks visible on the run sheet."`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	if err := ctx.Connect(); err != nil {
		return err
	}

	cat := ctx.Catalog()
	if _, err := cat.Load(ctx.Ctx(), tier); err != nil {
		return err
	}
	if c.Sort != "" {
		col, err := recurrence.ParseColumn(c.Sort)
		if err != nil {
			return err
		}
		cat.Sort(col)
	}

	tasks := cat.Tasks()
	if len(tasks) == 0 {
		fmt.Fprintf(ctx.Out, "No %s tasks found\n", tier)
		return nil
	}

	fmt.Fprintf(ctx.Out, "%s tasks:\n", tier.Title())
	for _, t := range tasks {
		if c.VisibleOnly && !t.Visible {
			continue
		}
		fmt.Fprintf(ctx.Out, "  %s\n", FormatTask(t))
		if t.Link != nil {
			fmt.Fprintf(ctx.Out, "      Link: %s <%s>\n", t.Link.Label, t.Link.URL)
		}
	}
	return nil
}

// FormatTask renders one catalog line: "[visible] Filter @ RoomA  月 (ID: ...)".
func FormatTask(t models.MaintenanceTask) string {
	status := "visible"
	if !t.Visible {
		status = "hidden"
	}
	return fmt.Sprintf("[%s] %s @ %s  %s (ID: %s)", status, t.Item, t.Place, t.Slot.Format(t.Tier), t.ID)
}
