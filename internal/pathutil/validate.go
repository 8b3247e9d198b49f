// Package pathutil confines file writes requested over MCP to allowed
// directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputsDir is the per-user directory for influence graphs written on
// behalf of MCP clients, under ~/.inflood.
const OutputsDir = "outputs"

// RedactPath shortens a path to .../<parent>/<base> for error messages.
// For example, "/home/user/.inflood/runs.db" becomes ".../.inflood/runs.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath returns an error unless path, with symlinks in its existing
// ancestors resolved, lies inside one of dirs. The file itself need not
// exist.
func ValidatePath(path string, dirs []string) error {
	switch {
	case path == "":
		return errors.New("path validation failed: path is empty")
	case len(dirs) == 0:
		return errors.New("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, 0):
		return errors.New("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	parent, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	target := filepath.Join(parent, filepath.Base(abs))

	for _, dir := range dirs {
		allowed, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if allowed, err = resolve(allowed); err != nil {
			continue
		}
		if within(target, allowed) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(abs))
}

// resolve evaluates symlinks in the deepest existing ancestor of dir and
// re-appends the missing tail.
func resolve(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolved, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolved, filepath.Base(dir)), nil
}

// within reports whether path is base or lies below it.
func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}

// DefaultOutputDirs returns the directories MCP clients may always write
// to: ~/.inflood/outputs.
func DefaultOutputDirs() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return []string{filepath.Join(homeDir, ".inflood", OutputsDir)}, nil
}

