package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/tenken/internal/backup"
	"github.com/julianstephens/tenken/internal/catalog"
	"github.com/julianstephens/tenken/internal/checklog"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/memo"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/utils"
)

// ErrNoUser is returned by check-in commands when no operator name is known.
var ErrNoUser = errors.New("no operator name: pass --user, set TENKEN_USER or operator.name in the config")

type Context struct {
	Config     *config.Config
	ConfigPath string
	Target     config.StoreTarget
	Store      recordstore.Store
	Clock      utils.Clock

	In  io.Reader
	Out io.Writer

	// Open connects the store on first use. Commands that manage the store
	// file themselves (init, backup restore) run before it is called.
	Open func(ctx context.Context) (recordstore.Store, error)
}

// Ctx returns the context store calls run under.
func (c *Context) Ctx() context.Context {
	return context.Background()
}

// Connect opens the store if it is not open yet.
func (c *Context) Connect() error {
	if c.Store != nil {
		return nil
	}
	if c.Open == nil {
		return errors.New("no record store configured")
	}
	store, err := c.Open(c.Ctx())
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

// Close releases the store.
func (c *Context) Close() error {
	if c.Store == nil {
		return nil
	}
	err := c.Store.Close()
	c.Store = nil
	return err
}

// Backups returns the backup manager of a SQLite store.
func (c *Context) Backups() (*backup.Manager, error) {
	if c.Target.Kind != config.StoreSQLite {
		return nil, fmt.Errorf("backups are only supported for sqlite stores (current: %s)", c.Target.Kind)
	}
	return backup.NewManager(c.Target.Target), nil
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	if err := c.backupHook(ctx); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// backupHook backs up SQLite stores and is a no-op for the others.
func (c *Context) backupHook(ctx context.Context) error {
	if c.Target.Kind != config.StoreSQLite {
		return nil
	}
	return backup.NewManager(c.Target.Target).Automatic(ctx)
}

// Catalog returns a catalog over the store that backs up before deletions.
func (c *Context) Catalog() *catalog.Catalog {
	return catalog.New(c.Store, catalog.WithBackup(c.backupHook))
}

// Reconciler returns a reconciler using the configured check policies.
func (c *Context) Reconciler() *checklog.Reconciler {
	return checklog.New(c.Store, checklog.WithPolicies(c.Config.PolicyFor))
}

// Memos returns the memo board.
func (c *Context) Memos() *memo.Board {
	return memo.New(c.Store)
}

// Today returns the current date in the configured timezone.
func (c *Context) Today() string {
	loc, err := c.Config.Location()
	if err != nil {
		loc = time.Local
	}
	clock := c.Clock
	if clock == nil {
		clock = time.Now
	}
	return utils.Today(clock, loc)
}

// User resolves the operator name: the flag, then the configuration.
func (c *Context) User(flag string) (string, error) {
	if u := strings.TrimSpace(flag); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(c.Config.Operator.Name); u != "" {
		return u, nil
	}
	return "", ErrNoUser
}

// Confirm asks a yes/no question on Out and reads the answer from In.
// Anything but y/yes declines.
func (c *Context) Confirm(prompt string) bool {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		fmt.Fprintln(c.Out)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// ParseTier is the shared tier argument parser of the commands.
func ParseTier(s string) (models.Tier, error) {
	return models.ParseTier(s)
}

// NewContext returns a context writing to stdout and reading stdin.
func NewContext(cfg *config.Config, configPath string, target config.StoreTarget) *Context {
	return &Context{
		Config:     cfg,
		ConfigPath: configPath,
		Target:     target,
		Clock:      time.Now,
		In:         os.Stdin,
		Out:        os.Stdout,
	}
}
