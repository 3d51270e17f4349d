package migrations

import "embed"

// FS contains embedded SQLite migrations for console storage.
//
//go:embed *.sql
var FS embed.FS
