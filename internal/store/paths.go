package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the name of the run database inside the inflood directory.
const DBFile = "runs.db"

// GlobalInfloodPath returns the path to the global .inflood directory.
// On Unix: ~/.inflood
// On Windows: %USERPROFILE%\.inflood
func GlobalInfloodPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".inflood"), nil
}

// DefaultPath returns the default run database path, ~/.inflood/runs.db.
func DefaultPath() (string, error) {
	dir, err := GlobalInfloodPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFile), nil
}
