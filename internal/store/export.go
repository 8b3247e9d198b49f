package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes the runs with the given IDs, or every run when ids is
// empty, to w as one JSON object per line. Runs are written oldest first.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer, ids ...string) (int, error) {
	if len(ids) == 0 {
		headers, err := s.ListRuns(ctx, 0)
		if err != nil {
			return 0, err
		}
		for i := len(headers) - 1; i >= 0; i-- {
			ids = append(ids, headers[i].ID)
		}
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, id := range ids {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			return i, err
		}
		if err := enc.Encode(run); err != nil {
			return i, fmt.Errorf("failed to encode run %s: %w", id, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return len(ids), fmt.Errorf("failed to flush export: %w", err)
	}
	return len(ids), nil
}

// ImportJSONL reads runs written by ExportJSONL and saves them into s.
// Blank lines are skipped; a malformed line aborts the import.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024) // 64MB max line length

	imported := 0
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			return imported, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		if err := s.SaveRun(ctx, &run); err != nil {
			return imported, fmt.Errorf("failed to import run %s: %w", run.ID, err)
		}
		imported++
	}

	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("scanner error: %w", err)
	}
	return imported, nil
}
