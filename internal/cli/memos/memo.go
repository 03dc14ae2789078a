package memos

import (
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/models"
)

type MemoAddCmd struct {
	Text  string `arg:"" help:"Memo text."`
	Start string `help:"First day the memo is shown (YYYY-MM-DD)." required:""`
	End   string `help:"Last day the memo is shown (YYYY-MM-DD)." required:""`
}

func (c *MemoAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return err
	}
	m, err := ctx.Memos().Add(ctx.Ctx(), c.Text, c.Start, c.End)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Added memo %s\n", m.ID)
	return nil
}

type MemoListCmd struct {
	All bool `short:"a" help:"Show past memos too."`
}

func (c *MemoListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return err
	}
	board := ctx.Memos()
	today := ctx.Today()

	if c.All {
		all, err := board.List(ctx.Ctx())
		if err != nil {
			return err
		}
		printMemos(ctx, "All memos", all)
		return nil
	}

	active, err := board.Active(ctx.Ctx(), today)
	if err != nil {
		return err
	}
	upcoming, err := board.Upcoming(ctx.Ctx(), today)
	if err != nil {
		return err
	}
	printMemos(ctx, "Today ("+today+")", active)
	printMemos(ctx, "Upcoming", upcoming)
	return nil
}

func printMemos(ctx *cli.Context, title string, memos []models.Memo) {
	fmt.Fprintf(ctx.Out, "%s:\n", title)
	if len(memos) == 0 {
		fmt.Fprintln(ctx.Out, "  (none)")
		return
	}
	for _, m := range memos {
		fmt.Fprintf(ctx.Out, "  %s ~ %s  %s (ID: %s)\n", m.StartDate, m.EndDate, m.Text, m.ID)
	}
}

type MemoDeleteCmd struct {
	ID  string `arg:"" help:"Memo ID (START_END)."`
	Yes bool   `short:"y" help:"Delete without asking."`
}

func (c *MemoDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return err
	}
	deleted, err := ctx.Memos().Delete(ctx.Ctx(), c.ID, func(m models.Memo) bool {
		return c.Yes || ctx.Confirm(fmt.Sprintf("Delete memo %q?", m.Text))
	})
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(ctx.Out, "Delete cancelled.")
		return nil
	}
	fmt.Fprintf(ctx.Out, "Deleted memo %s\n", c.ID)
	return nil
}
