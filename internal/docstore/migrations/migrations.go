// Package migrations embeds the PostgreSQL schema migrations for the scan
// document store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
