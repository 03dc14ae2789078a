package tasks

import (
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/models"
)

type TaskAddCmd struct {
	Tier    string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	Item    string `short:"i" help:"What to maintain." required:""`
	Place   string `short:"p" help:"Where the item is." required:""`
	Day     string `short:"d" help:"Day of week for daily, weekly and monthly tasks (mon..sun, 1-7 or 月..日)."`
	Week    string `short:"w" help:"Week of month for monthly tasks (1st..5th or 1-5)."`
	Month   string `short:"m" help:"Month for quarterly and yearly tasks (jan..dec or 1-12)."`
	Visible bool   `help:"Show the task on the run sheet."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	slot, err := ParseSlot(tier, map[models.SlotField]string{
		models.SlotDay:   c.Day,
		models.SlotWeek:  c.Week,
		models.SlotMonth: c.Month,
	})
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
	task, err := cat.Add(models.TaskDraft{Item: c.Item, Place: c.Place, Slot: slot, Visible: c.Visible})
	if err != nil {
		return err
	}
	if err := cat.Save(ctx.Ctx()); err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "Added %s task: %s at %s (ID: %s)\n", tier, task.Item, task.Place, task.ID)
	return nil
}

// ParseSlot builds a slot from flag values. Values for dimensions the tier
// does not use are rejected; empty values stay Unselected.
func ParseSlot(tier models.Tier, values map[models.SlotField]string) (models.Slot, error) {
	slot := models.UnselectedSlot()
	for _, f := range []models.SlotField{models.SlotDay, models.SlotWeek, models.SlotMonth} {
		raw := values[f]
		if raw == "" {
			continue
		}
		if !tier.HasSlotField(f) {
			return slot, &apperr.InvalidFieldError{Field: string(f), Value: raw}
		}
		v, err := f.Parse(raw)
		if err != nil {
			return slot, &apperr.InvalidFieldError{Field: string(f), Value: raw}
		}
		slot = slot.With(f, v)
	}
	return slot, nil
}
