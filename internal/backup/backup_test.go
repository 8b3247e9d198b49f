package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/inflood/internal/network"
	"github.com/nvandessel/inflood/internal/store"
)

// seededStore returns an in-memory store holding runs with the given IDs.
func seededStore(t *testing.T, ids ...string) store.RunStore {
	t.Helper()
	s := store.NewInMemoryRunStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		run := &store.Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			GraphPath: "edges.csv",
			Params:    store.Params{Days: 10, Alpha: 1.17, P0: 0.93, RNGSeed: uint64(i + 1)},
			Infected:  2,
			Events:    3,
			Seeds:     []int64{1},
			Edges:     []network.Edge{{From: 1, To: 2, Weight: 3}},
			Infections: []store.Infection{
				{Node: 1, InfectedAt: 0, P0: 0.9},
				{Node: 2, InfectedAt: 1, P0: 0.93},
			},
		}
		if err := s.SaveRun(context.Background(), run); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, "run-a", "run-b", "run-c")
	path := filepath.Join(t.TempDir(), "nested", "snapshot.backup")

	header, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if header.Runs != 3 || header.Version != FormatVersion || !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("unexpected header: %+v", header)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	// One run already present is skipped.
	dst := seededStore(t, "run-b")
	result, err := Restore(ctx, dst, path)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if result.Restored != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 restored, 1 skipped", result)
	}

	run, err := dst.GetRun(ctx, "run-c")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Params.RNGSeed != 3 || len(run.Infections) != 2 || run.Edges[0].Weight != 3 {
		t.Errorf("restored run differs: %+v", run)
	}
}

func TestBackup_EmptyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.backup")

	header, err := Backup(ctx, seededStore(t), path)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if header.Runs != 0 {
		t.Errorf("Runs = %d, want 0", header.Runs)
	}

	result, err := Restore(ctx, store.NewInMemoryRunStore(), path)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if result.Restored != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.backup")
	if _, err := Backup(ctx, seededStore(t, "run-a"), path); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	header, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if header.Runs != 1 {
		t.Errorf("Runs = %d, want 1", header.Runs)
	}

	// Flip the last payload byte.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Verify(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Verify of corrupted file = %v, want checksum mismatch", err)
	}
	if _, err := Restore(ctx, store.NewInMemoryRunStore(), path); err == nil {
		t.Error("Restore of corrupted file should fail")
	}
}

func TestReadHeader_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"empty":       "",
		"not json":    "hello\n",
		"bad version": `{"version":9,"checksum":"sha256:00"}` + "\n",
		"bad sum":     `{"version":1,"checksum":"md5:00"}` + "\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "-"))
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := ReadHeader(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := ReadHeader(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGeneratePath(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123, time.UTC)
	got := GeneratePath("/backups", now)
	want := filepath.Join("/backups", "inflood-runs-20240506-070809.000000123.backup")
	if got != want {
		t.Errorf("GeneratePath() = %s, want %s", got, want)
	}
	if !isBackupFile(filepath.Base(got)) {
		t.Error("generated name not recognized as a backup file")
	}

	later := GeneratePath("/backups", now.Add(time.Nanosecond))
	if filepath.Base(later) <= filepath.Base(got) {
		t.Error("later backups should sort after earlier ones")
	}
}

func TestDefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir: %v", err)
	}
	if want := filepath.Join(home, ".inflood", DirName); dir != want {
		t.Errorf("DefaultDir() = %s, want %s", dir, want)
	}
}
