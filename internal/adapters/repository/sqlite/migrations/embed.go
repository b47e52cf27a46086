package migrations

import "embed"

// FS contains embedded SQLite migrations for divari storage.
//
//go:embed *.sql
var FS embed.FS
