// Package migrations embeds the goose SQL migrations of the StoreIt schema.
package migrations

import "embed"

// Migrations holds the *.sql files applied at startup.
//
//go:embed *.sql
var Migrations embed.FS
