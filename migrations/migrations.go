// Package migrations embeds the SQL schema migrations applied by
// internal/store.SQLStore.Migrate on startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
