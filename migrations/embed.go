// Package migrations embeds the goose schema migrations. Go migrations in
// this package register themselves on import.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
