package system

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsStore checks are skipped when the store is unreachable
	needsStore bool
	warnOnly   bool
	run        func(ctx *cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Fprintln(ctx.Out, "Running diagnostics...")
	fmt.Fprintln(ctx.Out)

	checks := []check{
		{name: "Configuration", run: checkConfig},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "Store reachable", run: checkStoreReachable},
		{name: "Schema version", needsStore: true, run: checkSchemaVersion},
		{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
		{name: "Catalog integrity", needsStore: true, run: checkCatalogIntegrity},
		{name: "Completion logs", needsStore: true, warnOnly: true, run: checkCompletionLogs},
	}

	hasError := false
	for _, c := range checks {
		if c.needsStore && ctx.Store == nil {
			fmt.Fprintf(ctx.Out, "⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(ctx.Out, "✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Fprintf(ctx.Out, "⚠ %s: WARNING\n   %v\n", c.name, err)
		default:
			fmt.Fprintf(ctx.Out, "❌ %s: FAIL\n   Error: %v\n", c.name, err)
			hasError = true
		}
	}

	fmt.Fprintln(ctx.Out)
	if hasError {
		return fmt.Errorf("diagnostics found problems")
	}
	fmt.Fprintln(ctx.Out, "All checks passed.")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	return ctx.Config.Validate()
}

func checkClockTimezone(ctx *cli.Context) error {
	loc, err := ctx.Config.Location()
	if err != nil {
		return err
	}
	if !utils.ValidateDate(ctx.Today()) {
		return fmt.Errorf("today resolves to an invalid date in %s", loc)
	}
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Connect(); err != nil {
		return err
	}
	_, err := ctx.Store.List(ctx.Ctx(), models.TierDaily.SettingsCollection())
	return err
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := sqlBackend(ctx.Store)
	if !ok {
		return nil
	}
	current, latest, err := m.SchemaVersion(ctx.Ctx())
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("schema version %d is behind %d, run 'tenken migrate'", current, latest)
	}
	if current > latest {
		return fmt.Errorf("schema version %d is newer than this binary supports (%d)", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if ctx.Target.Kind != config.StoreSQLite {
		return nil
	}
	mgr, err := ctx.Backups()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s, run 'tenken backup create'", mgr.Dir())
	}
	return nil
}

func checkCatalogIntegrity(ctx *cli.Context) error {
	problems, err := CatalogProblems(ctx.Ctx(), ctx.Store)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "\n   "))
	}
	return nil
}

func checkCompletionLogs(ctx *cli.Context) error {
	problems, err := LogProblems(ctx.Ctx(), ctx.Store)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "\n   "))
	}
	return nil
}

// CatalogProblems reports stored tasks that break catalog rules: blank item
// or place, (item, place) pairs stored twice, and slot values outside the
// tier's domain.
func CatalogProblems(ctx context.Context, store recordstore.Store) ([]string, error) {
	var problems []string
	for _, tier := range models.Tiers {
		records, err := store.List(ctx, tier.SettingsCollection())
		if err != nil {
			return nil, err
		}
		seen := make(map[[2]string]string)
		for _, r := range records {
			item, place := models.StringField(r.Fields, models.FieldItem), models.StringField(r.Fields, models.FieldPlace)
			if strings.TrimSpace(item) == "" || strings.TrimSpace(place) == "" {
				problems = append(problems, fmt.Sprintf("%s task %s: item and place are required", tier, r.ID))
			}
			key := [2]string{item, place}
			if other, ok := seen[key]; ok {
				problems = append(problems, fmt.Sprintf("%s tasks %s and %s: duplicate %q at %q", tier, other, r.ID, item, place))
			} else {
				seen[key] = r.ID
			}
			for _, f := range tier.SlotFields() {
				if v, ok := r.Fields[string(f)].(string); ok && !f.Valid(v) {
					problems = append(problems, fmt.Sprintf("%s task %s: invalid %s %q", tier, r.ID, f, v))
				}
			}
		}
	}
	return problems, nil
}

// LogProblems reports completion logs without a task and logs whose
// timestamp is not a YYYY-MM-DD date.
func LogProblems(ctx context.Context, store recordstore.Store) ([]string, error) {
	var problems []string
	for _, tier := range models.Tiers {
		tasks, err := store.List(ctx, tier.SettingsCollection())
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(tasks))
		for _, r := range tasks {
			known[r.ID] = true
		}

		logs, err := store.List(ctx, tier.ChecksCollection())
		if err != nil {
			return nil, err
		}
		var orphans []string
		for _, r := range logs {
			if !known[r.ID] {
				orphans = append(orphans, r.ID)
			}
			entry := models.LogFromDocument(r.ID, r.Fields)
			if entry.Timestamp != "" && !utils.ValidateDate(entry.Timestamp) {
				problems = append(problems, fmt.Sprintf("%s log %s: invalid timestamp %q", tier, r.ID, entry.Timestamp))
			}
		}
		if len(orphans) > 0 {
			sort.Strings(orphans)
			problems = append(problems, fmt.Sprintf("%s logs without a task: %s (clear with 'tenken log clear')", tier, strings.Join(orphans, ", ")))
		}
	}
	return problems, nil
}
