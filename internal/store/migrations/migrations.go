// Package migrations embeds the SQL schema migrations for beazap.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
