// Package migrations embeds the goose SQL migration files so the server
// binary can bring its own schema up to date at startup.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
