// Package migrations embeds the schema files for the relational record
// store backends.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
