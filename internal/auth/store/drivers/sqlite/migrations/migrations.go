// Package migrations embeds the schema history applied at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
