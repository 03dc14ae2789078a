package tasks

import (
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/models"
)

type TaskLinkCmd struct {
	Tier   string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	ID     string `arg:"" help:"Task ID."`
	URL    string `arg:"" help:"Procedure document URL."`
	Label  string `short:"l" help:"Link label."`
	Change bool   `help:"Replace an existing link."`
}

func (c *TaskLinkCmd) Run(ctx *cli.Context) error {
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
	link := models.ReferenceLink{URL: c.URL, Label: c.Label}
	if c.Change {
		err = cat.ChangeLink(c.ID, link)
	} else {
		err = cat.AttachLink(c.ID, link)
	}
	if err != nil {
		return err
	}
	if err := cat.Save(ctx.Ctx()); err != nil {
		return err
	}

	task, _ := cat.Task(c.ID)
	fmt.Fprintf(ctx.Out, "Linked %s to %s\n", task.Item, task.Link.URL)
	return nil
}
