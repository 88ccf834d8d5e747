// Package migrations embeds the SQL migration files for the Postgres
// backend.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
