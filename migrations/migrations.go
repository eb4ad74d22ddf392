// Package migrations embeds the goose SQL migration files so
// cmd/migrate can apply them without relying on a working directory
// relative to the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
