// Package migrations embeds the goose migrations for the server PostgreSQL
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
