// Package migrations embeds the SQL schema migrations into the binary so
// the database can be brought up to date without the files on disk.
package migrations

import "embed"

// FS holds every *.sql migration at its root, ready for database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
