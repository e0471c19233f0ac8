// Package migrations embeds the SQL schema for the identity store.
package migrations

import (
	"embed"

	"github.com/nerrad567/gamepad-io/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
