package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB opens a bare SQLite database in a temporary directory.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestInitSchema_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	for _, table := range []string{"runs", "run_seeds", "run_edges", "run_infections", "run_histogram", "schema_version"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s was not created", table)
		}
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema call %d failed: %v", i+1, err)
		}
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&rows); err != nil {
		t.Fatalf("failed to count schema_version rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("schema_version has %d rows, want 1", rows)
	}
}

func TestGetSchemaVersion_NoTable(t *testing.T) {
	db := openTestDB(t)
	if _, err := getSchemaVersion(context.Background(), db); err == nil {
		t.Error("expected error when schema_version does not exist")
	}
}

func TestValidateIntegrity(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity on fresh schema: %v", err)
	}
}

func TestValidateIntegrity_DanglingForeignKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	// Insert an orphan with enforcement off so foreign_key_check sees it.
	if _, err := db.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("failed to disable foreign keys: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO run_seeds (run_id, position, node) VALUES ('missing', 0, 1)`); err != nil {
		t.Fatalf("failed to insert orphan: %v", err)
	}

	if err := ValidateIntegrity(ctx, db); err == nil {
		t.Error("expected foreign_key_check to report the orphaned seed")
	}
}

func TestResetSchema(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO runs (id, created_at, days, alpha, p0, seed_count, seed_min_degree,
		max_attempts_per_day, rng_seed, infected, events, distinct_edges)
		VALUES ('r1', '2026-01-01T00:00:00.000000000Z', 1, 1.17, 0.93, 1, 1, 10, '0', 1, 0, 0)`); err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}

	if err := ResetSchema(ctx, db); err != nil {
		t.Fatalf("ResetSchema failed: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if n != 0 {
		t.Errorf("runs has %d rows after reset, want 0", n)
	}
	if version, err := getSchemaVersion(ctx, db); err != nil || version != SchemaVersion {
		t.Errorf("schema version after reset = %d, %v", version, err)
	}
}
