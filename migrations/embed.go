// Package migrations embeds the preference store schema into the binary.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds the .sql migration files at its root, ready for database.Migrate.
var FS = files
