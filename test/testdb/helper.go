package testdb

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/selivandex/market-reporter/internal/adapters/database"
)

// tables in dependency order (children first)
var tables = []string{
	"accuracies",
	"main_reports",
	"prices",
	"report_weights",
	"news_analyses",
	"chart_analyses",
}

// Setup connects to TEST_DATABASE_URL, applies migrations and empties all tables.
// The test is skipped when TEST_DATABASE_URL is not set.
func Setup(t *testing.T, migrationsPath string) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres test")
	}

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.Wrap(conn).RunMigrations(migrationsPath); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	Truncate(t, conn)

	t.Cleanup(func() {
		Truncate(t, conn)
		if err := conn.Close(); err != nil {
			t.Logf("warning: failed to close database: %v", err)
		}
	})

	return conn
}

// Truncate removes all rows and resets identities
func Truncate(t *testing.T, db *sqlx.DB) {
	t.Helper()

	for _, table := range tables {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}
