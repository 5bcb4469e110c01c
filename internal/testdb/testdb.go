//go:build integration

// Package testdb provides the postgres harness for integration tests:
// opening the test database, applying migrations, and rolling back per-test
// transactions so tests stay isolated and parallelizable.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/phrazzld/scry-batch/internal/platform/postgres"
)

// Environment variables checked, in order, for the test database URL.
const (
	EnvTestDatabaseURL = "SCRY_BATCH_TEST_DB_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// URL returns the test database URL, or "" when none is configured.
func URL() string {
	if u := os.Getenv(EnvTestDatabaseURL); u != "" {
		return u
	}
	return os.Getenv(EnvDatabaseURL)
}

// MustOpen opens the test database and applies the embedded migrations.
// Tests are skipped when no test database URL is configured, so the
// integration suite degrades to a no-op on machines without postgres.
func MustOpen(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skipf("no test database configured; set %s", EnvTestDatabaseURL)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	goose.SetBaseFS(postgres.Migrations())
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("failed to set migration dialect: %v", err)
	}
	if err := goose.Up(db, postgres.MigrationsDir); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so the
// test leaves no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin test transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
