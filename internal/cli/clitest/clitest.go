// Package clitest builds command contexts over an in-memory store.
package clitest

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
)

// Today is the date every context built here resolves as today.
const Today = "2024-03-04"

// NewContext returns a context over store with output captured in the
// returned buffer and answers read from input.
func NewContext(store *memory.Store, input string) (*cli.Context, *bytes.Buffer) {
	cfg := config.Default()
	cfg.Store = "memory://"
	cfg.Timezone = "UTC"
	cfg.Operator.Name = "Ann"

	out := &bytes.Buffer{}
	ctx := cli.NewContext(cfg, "", config.StoreTarget{Kind: config.StoreMemory})
	ctx.Clock = func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	ctx.In = strings.NewReader(input)
	ctx.Out = out
	ctx.Open = func(context.Context) (recordstore.Store, error) { return store, nil }
	return ctx, out
}
