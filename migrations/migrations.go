// Package migrations embeds the schema as bun/migrate SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
