package auth

import "embed"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the bundled accounts schema migrations so the
// embedding application can run them with its own migration tooling.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
