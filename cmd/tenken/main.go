package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/cli/backups"
	"github.com/julianstephens/tenken/internal/cli/memos"
	"github.com/julianstephens/tenken/internal/cli/runs"
	"github.com/julianstephens/tenken/internal/cli/system"
	"github.com/julianstephens/tenken/internal/cli/tasks"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/constants"
	apperr "github.com/julianstephens/tenken/internal/errors"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/utils"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"~/.config/tenken/config.yaml"`
	Store   string `help:"Record store URI (sqlite path, postgres://, azure-tables://<table>, memory://). Overrides the config file and TENKEN_STORE."`
	Debug   bool   `help:"Log debug output to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Write the config file and initialize the record store."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Task    struct {
		List   tasks.TaskListCmd   `cmd:"" help:"List the catalog of a tier."`
		Add    tasks.TaskAddCmd    `cmd:"" help:"Add a task to a tier."`
		Edit   tasks.TaskEditCmd   `cmd:"" help:"Edit an existing task."`
		Delete tasks.TaskDeleteCmd `cmd:"" help:"Delete a task and its completion log."`
		Link   tasks.TaskLinkCmd   `cmd:"" help:"Attach or change a task's reference link."`
	} `cmd:"" help:"Manage maintenance task catalogs."`
	Run struct {
		Show  runs.RunShowCmd  `cmd:"" help:"Show the run sheet of a tier." default:"1"`
		Check runs.RunCheckCmd `cmd:"" help:"Check in or uncheck tasks."`
	} `cmd:"" help:"Record completed maintenance."`
	Log struct {
		Clear runs.LogClearCmd `cmd:"" help:"Delete the completion log of a task."`
	} `cmd:"" help:"Manage completion logs."`
	Memo struct {
		Add    memos.MemoAddCmd    `cmd:"" help:"Post a memo for a date range."`
		List   memos.MemoListCmd   `cmd:"" help:"List current and upcoming memos." default:"1"`
		Delete memos.MemoDeleteCmd `cmd:"" help:"Delete a memo."`
	} `cmd:"" help:"Manage operator memos."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups (sqlite stores)."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Report keyring availability." default:"1"`
	} `cmd:"" help:"Manage store credentials in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Recurring facility maintenance: task catalogs, check-ins and memos"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configPath, err := utils.ExpandPath(CLI.Config)
	if err != nil {
		apperr.Fatal(err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		apperr.Fatalf("failed to load config: %v", err)
	}
	cfg = config.FromEnv(cfg)
	if CLI.Store != "" {
		cfg.Store = CLI.Store
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: filepath.Dir(configPath)}); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: file logging unavailable: %v\n", err)
	}

	target, err := config.ParseStore(cfg.Store)
	if err != nil {
		apperr.Fatal(err)
	}

	appCtx := cli.NewContext(cfg, configPath, target)
	appCtx.Open = func(c context.Context) (recordstore.Store, error) {
		return cli.OpenStore(c, cfg, target)
	}

	err = ctx.Run(appCtx)
	if cerr := appCtx.Close(); cerr != nil {
		logger.Warn("Failed to close record store", "error", cerr)
	}
	apperr.Fatal(err)
}
