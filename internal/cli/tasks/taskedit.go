package tasks

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/models"
)

type TaskEditCmd struct {
	Tier    string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	ID      string `arg:"" help:"Task ID to edit."`
	Item    string `short:"i" help:"New item."`
	Place   string `short:"p" help:"New place."`
	Day     string `short:"d" help:"New day of week ('-' for unselected)."`
	Week    string `short:"w" help:"New week of month ('-' for unselected)."`
	Month   string `short:"m" help:"New month ('-' for unselected)."`
	Visible bool   `help:"Show the task on the run sheet." xor:"visibility"`
	Hidden  bool   `help:"Hide the task from the run sheet." xor:"visibility"`
}

func (c *TaskEditCmd) changes() [][2]string {
	var out [][2]string
	for _, kv := range [][2]string{
		{models.FieldItem, c.Item},
		{models.FieldPlace, c.Place},
		{string(models.SlotDay), c.Day},
		{string(models.SlotWeek), c.Week},
		{string(models.SlotMonth), c.Month},
	} {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	if c.Visible || c.Hidden {
		out = append(out, [2]string{models.FieldVisible, strconv.FormatBool(c.Visible)})
	}
	return out
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	changes := c.changes()
	if len(changes) == 0 {
		return errors.New("nothing to change: pass at least one of --item, --place, --day, --week, --month, --visible, --hidden")
	}
	if err := ctx.Connect(); err != nil {
		return err
	}

	cat := ctx.Catalog()
	if _, err := cat.Load(ctx.Ctx(), tier); err != nil {
		return err
	}
	for _, kv := range changes {
		if err := cat.Update(c.ID, kv[0], kv[1]); err != nil {
			return err
		}
	}
	if !cat.IsDirty() {
		fmt.Fprintln(ctx.Out, "No changes.")
		return nil
	}
	if err := cat.Save(ctx.Ctx()); err != nil {
		return err
	}

	task, _ := cat.Task(c.ID)
	fmt.Fprintf(ctx.Out, "Updated %s\n", FormatTask(task))
	return nil
}
