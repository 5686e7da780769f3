// Package migrations embeds the catalog schema.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
