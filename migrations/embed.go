// Package migrations embeds the SQLite schema into the binary.
//
// Importing it for side effects registers the files with the database
// package, so migrations run without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
