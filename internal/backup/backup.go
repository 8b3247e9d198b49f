// Package backup snapshots the run archive into checksummed, compressed
// files and restores runs from them.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/nvandessel/inflood/internal/store"
)

// DirName is the backup directory under ~/.inflood.
const DirName = "backups"

// DefaultDir returns ~/.inflood/backups.
func DefaultDir() (string, error) {
	root, err := store.GlobalInfloodPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DirName), nil
}

// GeneratePath returns a timestamped backup file name in dir. Names sort
// in creation order.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, filePrefix+now.UTC().Format("20060102-150405.000000000")+fileExt)
}

// Backup writes every run in s to a new snapshot at path.
func Backup(ctx context.Context, s store.RunStore, path string) (*Header, error) {
	var payload bytes.Buffer
	gz := gzip.NewWriter(&payload)
	n, err := store.ExportJSONL(ctx, s, gz)
	if err != nil {
		return nil, fmt.Errorf("failed to export runs: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress runs: %w", err)
	}
	return write(path, payload.Bytes(), n, time.Now().UTC())
}

// RestoreResult counts what Restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"` // Runs whose ID was already in the store
}

// Restore verifies the snapshot at path and saves each of its runs that
// s does not already hold.
func Restore(ctx context.Context, s store.RunStore, path string) (*RestoreResult, error) {
	_, payload, err := read(path)
	if err != nil {
		return nil, err
	}
	defer payload.Close()

	result := &RestoreResult{}
	dec := json.NewDecoder(payload)
	for {
		var run store.Run
		err := dec.Decode(&run)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to decode run %d: %w", result.Restored+result.Skipped+1, err)
		}

		_, err = s.GetRun(ctx, run.ID)
		switch {
		case err == nil:
			result.Skipped++
			continue
		case !errors.Is(err, store.ErrRunNotFound):
			return result, err
		}
		if err := s.SaveRun(ctx, &run); err != nil {
			return result, fmt.Errorf("failed to restore run %s: %w", run.ID, err)
		}
		result.Restored++
	}
	return result, nil
}
