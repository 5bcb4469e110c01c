package postgres

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the directory name goose expects inside Migrations().
const MigrationsDir = "migrations"

// Migrations returns the embedded goose migration files.
func Migrations() fs.FS {
	return migrationsFS
}
