package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	allowedDir := t.TempDir()
	otherDir := t.TempDir()

	subDir := filepath.Join(allowedDir, "cascades")
	if err := os.MkdirAll(subDir, 0700); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		dirs        []string
		errContains string // empty means valid
	}{
		{"inside allowed dir", filepath.Join(allowedDir, "influence.csv"), []string{allowedDir}, ""},
		{"in subdirectory", filepath.Join(subDir, "influence.dot"), []string{allowedDir}, ""},
		{"the allowed dir itself", allowedDir, []string{allowedDir}, ""},
		{"missing intermediate dirs", filepath.Join(allowedDir, "a", "b", "influence.csv"), []string{allowedDir}, ""},
		{"redundant separators", allowedDir + string(os.PathSeparator) + string(os.PathSeparator) + "x.csv", []string{allowedDir}, ""},
		{"second allowed dir", filepath.Join(otherDir, "x.csv"), []string{allowedDir, otherDir}, ""},
		{"dot-dot traversal", filepath.Join(allowedDir, "..", "etc", "passwd"), []string{allowedDir}, "outside allowed directories"},
		{"embedded dot-dot", filepath.Join(subDir, "..", "..", "etc", "passwd"), []string{allowedDir}, "outside allowed directories"},
		{"outside", filepath.Join(otherDir, "x.csv"), []string{allowedDir}, "outside allowed directories"},
		{"sibling with shared prefix", allowedDir + "-evil/x.csv", []string{allowedDir}, "outside allowed directories"},
		{"null byte", filepath.Join(allowedDir, "in\x00fluence.csv"), []string{allowedDir}, "null byte"},
		{"empty path", "", []string{allowedDir}, "empty"},
		{"no allowed dirs", filepath.Join(allowedDir, "x.csv"), nil, "no allowed directories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.dirs)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidatePath() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidatePath() = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	outsideDir := t.TempDir()
	realDir := filepath.Join(allowedDir, "real")
	if err := os.MkdirAll(realDir, 0700); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	escape := filepath.Join(allowedDir, "escape")
	inside := filepath.Join(allowedDir, "link")
	if err := os.Symlink(outsideDir, escape); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.Symlink(realDir, inside); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	if err := ValidatePath(filepath.Join(escape, "x.csv"), []string{allowedDir}); err == nil {
		t.Error("symlink pointing outside the allowed dir should be rejected")
	}
	if err := ValidatePath(filepath.Join(inside, "x.csv"), []string{allowedDir}); err != nil {
		t.Errorf("symlink staying inside the allowed dir should be accepted, got %v", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.inflood/runs.db", ".../.inflood/runs.db"},
		{"/a/b/c/d/e.csv", ".../d/e.csv"},
		{"/edges.csv", "edges.csv"},
		{"dir/edges.csv", ".../dir/edges.csv"},
		{"edges.csv", "edges.csv"},
		{"/home/user/.inflood/", ".../user/.inflood"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.input); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultOutputDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dirs, err := DefaultOutputDirs()
	if err != nil {
		t.Fatalf("DefaultOutputDirs() error = %v", err)
	}
	want := filepath.Join(home, ".inflood", OutputsDir)
	if len(dirs) != 1 || dirs[0] != want {
		t.Errorf("DefaultOutputDirs() = %v, want [%s]", dirs, want)
	}
}
