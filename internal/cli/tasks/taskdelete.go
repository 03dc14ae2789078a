package tasks

import (
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/models"
)

type TaskDeleteCmd struct {
	Tier string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	ID   string `arg:"" help:"Task ID to delete."`
	Yes  bool   `short:"y" help:"Delete without asking."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
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
	deleted, err := cat.Delete(c.ID, func(t models.MaintenanceTask) bool {
		if c.Yes {
			return true
		}
		return ctx.Confirm(fmt.Sprintf("Delete %s task %q at %q and its completion log?", tier, t.Item, t.Place))
	})
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(ctx.Out, "Delete cancelled.")
		return nil
	}
	if err := cat.Save(ctx.Ctx()); err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "Deleted %s task %s\n", tier, c.ID)
	return nil
}
