package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// newTestSQLiteStore opens a store in a temporary directory.
func newTestSQLiteStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	s, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRunStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRunStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) RunStore {
		return newTestSQLiteStore(t)
	})
}

func TestSQLiteRunStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "runs.db")
	s, err := NewSQLiteRunStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSQLiteRunStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLiteRunStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore: %v", err)
	}
	if err := s.SaveRun(ctx, sampleRun("persisted", 0)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewSQLiteRunStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.GetRun(ctx, "persisted")
	if err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
	if len(got.Infections) != 3 || got.Params.RNGSeed != 1<<63+7 {
		t.Errorf("run not persisted intact: %+v", got)
	}
}

func TestSQLiteRunStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.SaveRun(ctx, sampleRun("cascade", 0)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.DeleteRun(ctx, "cascade"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	for _, table := range []string{"run_seeds", "run_edges", "run_infections", "run_histogram"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d orphaned rows", table, n)
		}
	}
}
