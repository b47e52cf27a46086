package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for divari storage.
//
//go:embed *.sql
var FS embed.FS
