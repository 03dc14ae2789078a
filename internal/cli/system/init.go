package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/utils"
)

type InitCmd struct {
	Force bool `help:"Overwrite an existing config file."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	path, err := utils.ExpandPath(ctx.ConfigPath)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil && !c.Force:
		fmt.Fprintf(ctx.Out, "Config already exists at: %s (use --force to overwrite)\n", path)
	case statErr == nil || errors.Is(statErr, os.ErrNotExist):
		if err := ctx.Config.Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(ctx.Out, "Wrote config to: %s\n", path)
	default:
		return fmt.Errorf("failed to access config: %w", statErr)
	}

	if err := ctx.Connect(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Initialized tenken %s storage at: %s\n", ctx.Target.Kind, describe(ctx))
	return nil
}

func describe(ctx *cli.Context) string {
	if ctx.Target.Target == "" {
		return string(ctx.Target.Kind)
	}
	if ctx.Target.Kind == config.StorePostgres {
		return maskPassword(ctx.Target.Target)
	}
	return ctx.Target.Target
}
