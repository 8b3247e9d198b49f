package network

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// progressInterval is how many rows are read between progress log lines.
const progressInterval = 10000

// LoadOptions controls how a delimited edge list is read.
type LoadOptions struct {
	// Delimiter separates fields. Default: ','.
	Delimiter rune

	// Reverse swaps the direction of every edge (to -> from).
	Reverse bool

	// Weighted requires a third integer weight column. When false every
	// row counts as weight 1 and extra columns are ignored.
	Weighted bool

	// Logger receives progress output. Nil disables it.
	Logger *slog.Logger
}

// DefaultLoadOptions returns options for a comma-separated weighted edge list.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter: ',',
		Weighted:  true,
	}
}

// GraphLoadError reports a malformed row in an edge list.
type GraphLoadError struct {
	Line  int    // 1-based line number in the input
	Field string // "from", "to", "weight", or "" for row-level problems
	Err   error
}

func (e *GraphLoadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("edge list line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("edge list line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *GraphLoadError) Unwrap() error {
	return e.Err
}

// ParseDelimiter converts a delimiter name or single character into a rune.
// Accepted names: "comma", "tab", "space", "semicolon", "pipe", and "\t".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case " ", "space":
		return ' ', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	if r[0] == '"' || r[0] == '\r' || r[0] == '\n' || r[0] == '#' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r[0], nil
}

// Load reads a delimited edge list of "from,to[,weight]" rows into a Graph.
// Blank lines and lines starting with '#' are skipped. Repeated rows for the
// same ordered pair accumulate weight. Any malformed row aborts the load with
// a *GraphLoadError.
func Load(r io.Reader, opts LoadOptions) (*Graph, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = opts.Delimiter != ' '
	cr.ReuseRecord = true

	minFields := 2
	if opts.Weighted {
		minFields = 3
	}

	g := NewGraph()
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &GraphLoadError{Line: pe.Line, Err: pe.Err}
			}
			return nil, fmt.Errorf("reading edge list: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows++

		if len(record) < minFields {
			return nil, &GraphLoadError{
				Line: line,
				Err:  fmt.Errorf("expected at least %d fields, got %d", minFields, len(record)),
			}
		}

		from, err := parseField(record[0])
		if err != nil {
			return nil, &GraphLoadError{Line: line, Field: "from", Err: err}
		}
		to, err := parseField(record[1])
		if err != nil {
			return nil, &GraphLoadError{Line: line, Field: "to", Err: err}
		}
		weight := int64(1)
		if opts.Weighted {
			weight, err = parseField(record[2])
			if err != nil {
				return nil, &GraphLoadError{Line: line, Field: "weight", Err: err}
			}
			if weight <= 0 {
				return nil, &GraphLoadError{Line: line, Field: "weight", Err: fmt.Errorf("weight must be positive, got %d", weight)}
			}
			if weight > MaxWeight {
				return nil, &GraphLoadError{Line: line, Field: "weight", Err: fmt.Errorf("%w: %d > %d", ErrWeightOverflow, weight, MaxWeight)}
			}
		}
		if from < 0 || to < 0 {
			return nil, &GraphLoadError{Line: line, Err: fmt.Errorf("node IDs must be non-negative")}
		}

		if opts.Reverse {
			from, to = to, from
		}
		if err := g.AddEdge(from, to, weight); err != nil {
			lerr := &GraphLoadError{Line: line, Err: err}
			if errors.Is(err, ErrWeightOverflow) {
				lerr.Field = "weight"
			}
			return nil, lerr
		}

		if opts.Logger != nil && rows%progressInterval == 0 {
			opts.Logger.Debug("loading edge list", "rows", rows, "nodes", g.NumNodes())
		}
	}

	if opts.Logger != nil {
		opts.Logger.Info("edge list loaded", "rows", rows, "nodes", g.NumNodes(), "edges", g.NumEdges())
	}
	return g, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opts LoadOptions) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edge list: %w", err)
	}
	defer f.Close()

	g, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return g, nil
}

func parseField(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
