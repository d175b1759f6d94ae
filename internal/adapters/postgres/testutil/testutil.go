// Package testutil provides database helpers for the postgres adapter tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres"
)

// EnvDatabaseURL names the env var holding the test database DSN. Tests that
// need a real database skip when it is unset.
const EnvDatabaseURL = "TEST_DATABASE_URL"

// OpenMigratedPool connects to the test database, applies the schema, and
// returns a pool that is closed when the test finishes. The test is skipped
// when TEST_DATABASE_URL is not set.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres tests", EnvDatabaseURL)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

// ResetTables truncates every table so a test starts from an empty database.
func ResetTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE idempotency_ledger, notes, route_progress, preferences, routes, offline_bundles`)
	if err != nil {
		t.Fatalf("reset tables: %v", err)
	}
}
