package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/recordstore"
)

type migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	SchemaVersion(ctx context.Context) (current, latest int, err error)
}

// sqlBackend finds the schema-managed store behind any decorators.
func sqlBackend(store recordstore.Store) (migrator, bool) {
	for store != nil {
		if m, ok := store.(migrator); ok {
			return m, true
		}
		u, ok := store.(interface{ Unwrap() recordstore.Store })
		if !ok {
			return nil, false
		}
		store = u.Unwrap()
	}
	return nil, false
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	m, ok := sqlBackend(ctx.Store)
	if !ok {
		return fmt.Errorf("migrate command only supports sqlite and postgres stores (current: %s)", ctx.Target.Kind)
	}

	count, err := m.Migrate(ctx.Ctx(), func(msg string) {
		fmt.Fprintln(ctx.Out, msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(ctx.Out, "No migrations to apply. Database is up to date.")
	} else {
		fmt.Fprintf(ctx.Out, "\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
