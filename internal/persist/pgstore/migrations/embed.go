// Package migrations embeds the goose migration files for pgstore's
// schema, mirroring the teacher's internal/db/migrations embed package.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
