package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/inflood/internal/network"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is RFC 3339 with fixed-width nanoseconds, so stored times
// sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (or creates) the run database at dbPath,
// creating its directory if needed.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores run and all of its rows in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = NewID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := run.Params
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, graph_path, graph_nodes, graph_edges,
			days, alpha, p0, seed_count, seed_min_degree, max_attempts_per_day, rng_seed,
			infected, events, distinct_edges, rounding_fallbacks, capped_loops, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeFormat), run.GraphPath, run.GraphNodes, run.GraphEdges,
		p.Days, p.Alpha, p.P0, p.SeedCount, p.SeedMinDegree, p.MaxAttemptsPerDay,
		strconv.FormatUint(p.RNGSeed, 10),
		run.Infected, run.Events, run.DistinctEdges, run.RoundingFallbacks, run.CappedLoops, run.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO run_seeds (run_id, position, node) VALUES (?, ?, ?)`,
		len(run.Seeds), func(i int) []any {
			return []any{run.ID, i, run.Seeds[i]}
		}); err != nil {
		return fmt.Errorf("failed to insert seeds: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO run_edges (run_id, source, target, weight) VALUES (?, ?, ?, ?)`,
		len(run.Edges), func(i int) []any {
			e := run.Edges[i]
			return []any{run.ID, e.From, e.To, e.Weight}
		}); err != nil {
		return fmt.Errorf("failed to insert edges: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO run_infections (run_id, node, infected_at, p0, position) VALUES (?, ?, ?, ?, ?)`,
		len(run.Infections), func(i int) []any {
			in := run.Infections[i]
			return []any{run.ID, in.Node, in.InfectedAt, in.P0, i}
		}); err != nil {
		return fmt.Errorf("failed to insert infections: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO run_histogram (run_id, node, elapsed, count) VALUES (?, ?, ?, ?)`,
		len(run.Histogram), func(i int) []any {
			b := run.Histogram[i]
			return []any{run.ID, b.Node, b.Elapsed, b.Count}
		}); err != nil {
		return fmt.Errorf("failed to insert histogram: %w", err)
	}

	return tx.Commit()
}

// insertRows executes query once per row with a prepared statement.
func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

const runColumns = `id, created_at, graph_path, graph_nodes, graph_edges,
	days, alpha, p0, seed_count, seed_min_degree, max_attempts_per_day, rng_seed,
	infected, events, distinct_edges, rounding_fallbacks, capped_loops, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r         Run
		createdAt string
		graphPath sql.NullString
		rngSeed   string
	)
	err := row.Scan(&r.ID, &createdAt, &graphPath, &r.GraphNodes, &r.GraphEdges,
		&r.Params.Days, &r.Params.Alpha, &r.Params.P0, &r.Params.SeedCount, &r.Params.SeedMinDegree,
		&r.Params.MaxAttemptsPerDay, &rngSeed,
		&r.Infected, &r.Events, &r.DistinctEdges, &r.RoundingFallbacks, &r.CappedLoops, &r.DurationMS)
	if err != nil {
		return Run{}, err
	}

	r.GraphPath = graphPath.String
	if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return Run{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if r.Params.RNGSeed, err = strconv.ParseUint(rngSeed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("invalid rng_seed %q: %w", rngSeed, err)
	}
	return r, nil
}

// GetRun returns the full run with the given ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	if err := s.loadRows(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &r, nil
}

// loadRows fills the row slices of r.
func (s *SQLiteRunStore) loadRows(ctx context.Context, r *Run) error {
	err := queryRows(ctx, s.db, `SELECT node FROM run_seeds WHERE run_id = ? ORDER BY position`, r.ID,
		func(rows *sql.Rows) error {
			var n int64
			if err := rows.Scan(&n); err != nil {
				return err
			}
			r.Seeds = append(r.Seeds, n)
			return nil
		})
	if err != nil {
		return fmt.Errorf("seeds: %w", err)
	}

	err = queryRows(ctx, s.db, `SELECT source, target, weight FROM run_edges WHERE run_id = ? ORDER BY source, target`, r.ID,
		func(rows *sql.Rows) error {
			var e network.Edge
			if err := rows.Scan(&e.From, &e.To, &e.Weight); err != nil {
				return err
			}
			r.Edges = append(r.Edges, e)
			return nil
		})
	if err != nil {
		return fmt.Errorf("edges: %w", err)
	}

	err = queryRows(ctx, s.db, `SELECT node, infected_at, p0 FROM run_infections WHERE run_id = ? ORDER BY position`, r.ID,
		func(rows *sql.Rows) error {
			var in Infection
			if err := rows.Scan(&in.Node, &in.InfectedAt, &in.P0); err != nil {
				return err
			}
			r.Infections = append(r.Infections, in)
			return nil
		})
	if err != nil {
		return fmt.Errorf("infections: %w", err)
	}

	err = queryRows(ctx, s.db, `SELECT node, elapsed, count FROM run_histogram WHERE run_id = ? ORDER BY node, elapsed`, r.ID,
		func(rows *sql.Rows) error {
			var b HistogramBin
			if err := rows.Scan(&b.Node, &b.Elapsed, &b.Count); err != nil {
				return err
			}
			r.Histogram = append(r.Histogram, b)
			return nil
		})
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}

	return nil
}

func queryRows(ctx context.Context, db *sql.DB, query, id string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListRuns returns run headers, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through ON DELETE CASCADE, all of its rows.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
