// Package migrations embeds the goose SQL migrations for the
// data-protection schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
