package runs

import (
	"errors"
	"fmt"

	"github.com/julianstephens/tenken/internal/checklog"
	"github.com/julianstephens/tenken/internal/cli"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/models"
)

type RunShowCmd struct {
	Tier string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
}

func (c *RunShowCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	if err := ctx.Connect(); err != nil {
		return err
	}

	sheet, err := ctx.Reconciler().Open(ctx.Ctx(), tier)
	if err != nil {
		return err
	}
	rows := sheet.Rows()
	if len(rows) == 0 {
		fmt.Fprintf(ctx.Out, "No visible %s tasks\n", tier)
		return nil
	}

	fmt.Fprintf(ctx.Out, "%s run sheet (%s):\n", tier.Title(), sheet.Policy())
	for _, row := range rows {
		fmt.Fprintf(ctx.Out, "  %s\n", FormatRow(row))
	}
	return nil
}

// FormatRow renders one run-sheet line: "[x] Belt @ B1  月  2024-03-04・Bob (ID: ...)".
func FormatRow(row checklog.Row) string {
	mark := " "
	if row.Checked {
		mark = "x"
	}
	t := row.Task
	line := fmt.Sprintf("[%s] %s @ %s  %s", mark, t.Item, t.Place, t.Slot.Format(t.Tier))
	if d := row.Display(); d != "" {
		line += "  " + d
	}
	return line + fmt.Sprintf(" (ID: %s)", t.ID)
}

// ErrUncheckCleared is returned for --uncheck on a tier whose sheet starts
// unchecked, where unchecking cannot remove a log.
var ErrUncheckCleared = errors.New("tier uses the cleared check policy, so --uncheck changes nothing")

type RunCheckCmd struct {
	Tier    string   `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	Check   []string `short:"c" help:"Task IDs to check in." sep:","`
	Uncheck []string `short:"u" help:"Task IDs to uncheck; under the from-log policy their log entry is deleted (use log clear otherwise)." sep:","`
	User    string   `help:"Operator name (defaults to operator.name / TENKEN_USER)."`
}

func (c *RunCheckCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	if len(c.Check) == 0 && len(c.Uncheck) == 0 {
		return errors.New("nothing to do: pass --check or --uncheck")
	}
	if len(c.Uncheck) > 0 && ctx.Config.PolicyFor(tier) == models.PolicyCleared {
		return fmt.Errorf("%w; delete a log with 'log clear %s <id>'", ErrUncheckCleared, tier)
	}
	user, err := ctx.User(c.User)
	if err != nil {
		return err
	}
	if err := ctx.Connect(); err != nil {
		return err
	}

	r := ctx.Reconciler()
	sheet, err := r.Open(ctx.Ctx(), tier)
	if err != nil {
		return err
	}
	for _, id := range c.Check {
		if err := sheet.Check(id); err != nil {
			return err
		}
	}
	for _, id := range c.Uncheck {
		if err := sheet.Uncheck(id); err != nil {
			return err
		}
	}

	today := ctx.Today()
	writes := len(sheet.Writes(user, today))
	if err := r.Save(ctx.Ctx(), sheet, user, today); err != nil {
		var bwe *apperr.BatchWriteError
		if errors.As(err, &bwe) && bwe.Reloaded {
			fmt.Fprintln(ctx.Out, "Nothing was saved; the run sheet now shows the stored state.")
		}
		return err
	}

	fmt.Fprintf(ctx.Out, "Saved %d %s log write(s) as %s on %s\n", writes, tier, user, today)
	return nil
}

type LogClearCmd struct {
	Tier string `arg:"" help:"Tier (daily|weekly|monthly|quarterly|yearly)."`
	ID   string `arg:"" help:"Task ID whose completion log to clear."`
	Yes  bool   `short:"y" help:"Clear without asking."`
}

func (c *LogClearCmd) Run(ctx *cli.Context) error {
	tier, err := cli.ParseTier(c.Tier)
	if err != nil {
		return err
	}
	if err := ctx.Connect(); err != nil {
		return err
	}
	if !c.Yes && !ctx.Confirm(fmt.Sprintf("Clear the %s completion log of %s?", tier, c.ID)) {
		fmt.Fprintln(ctx.Out, "Clear cancelled.")
		return nil
	}
	if err := ctx.Reconciler().Clear(ctx.Ctx(), tier, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Cleared %s log of %s\n", tier, c.ID)
	return nil
}
