// Package migrations embeds the SQL schema of the session history database.
package migrations

import "embed"

// FS contains the migration files, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
