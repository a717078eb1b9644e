package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/printbay/printbay/internal/db"
	"github.com/printbay/printbay/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			// 3 materials + job + measurement + 2 quotes.
			if stats.Inserts != 7 {
				t.Fatalf("expected 7 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM materials`, 3)
	assertCount(t, database, `SELECT COUNT(*) FROM jobs WHERE creator_id = 'demo-creator'`, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM quotes WHERE status = 'PENDING'`, 2)
	assertCount(t, database, `SELECT COUNT(*) FROM measurements`, 1)
}

func assertCount(t *testing.T, database *sql.DB, query string, expected int) {
	t.Helper()

	var count int
	if err := database.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
