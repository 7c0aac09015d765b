// Package migrations embeds the SQLite schema for the key/value store
package migrations

import "embed"

// FS holds the ordered *.sql migration files
//
//go:embed *.sql
var FS embed.FS
