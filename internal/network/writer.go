package network

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Format names a serialization of a weighted graph.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// WriteCSV writes one "from,to,weight" row per edge, ordered by source then
// target. The output loads back with Load and weighted options.
func WriteCSV(w io.Writer, g *Graph, delimiter rune) error {
	if delimiter == 0 {
		delimiter = ','
	}
	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	row := make([]string, 3)
	for _, e := range g.Edges() {
		row[0] = strconv.FormatInt(e.From, 10)
		row[1] = strconv.FormatInt(e.To, 10)
		row[2] = strconv.FormatInt(e.Weight, 10)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing edge %d->%d: %w", e.From, e.To, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing edge list: %w", err)
	}
	return nil
}

// WriteFile writes g to path in the given format.
func WriteFile(path string, g *Graph, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	switch format {
	case FormatCSV, "":
		err = WriteCSV(f, g, ',')
	case FormatArrow:
		err = WriteArrow(f, g)
	default:
		err = fmt.Errorf("unsupported graph format %q (use 'csv' or 'arrow')", format)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a weighted graph written by WriteFile.
func ReadFile(path string, format Format) (*Graph, error) {
	switch format {
	case FormatCSV, "":
		return LoadFile(path, DefaultLoadOptions())
	case FormatArrow:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return ReadArrow(f)
	default:
		return nil, fmt.Errorf("unsupported graph format %q (use 'csv' or 'arrow')", format)
	}
}
