package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/inflood/internal/network"
)

func TestGraphCmd_DOT(t *testing.T) {
	isolateHome(t)
	edges := writeEdges(t, 3)

	out := mustExecute(t, "graph", edges)
	if !strings.HasPrefix(out, "digraph inflood {") {
		t.Errorf("expected DOT output, got:\n%s", out)
	}
	if !strings.Contains(out, `"2" -> "3" [label="6"`) {
		t.Errorf("missing weighted edge 2->3:\n%s", out)
	}
}

func TestGraphCmd_JSON(t *testing.T) {
	isolateHome(t)
	edges := writeEdges(t, 4)

	out := mustExecute(t, "graph", edges, "--format", "json")
	var got struct {
		NodeCount int `json:"node_count"`
		EdgeCount int `json:"edge_count"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.NodeCount != 4 || got.EdgeCount != 12 {
		t.Errorf("got %d nodes, %d edges", got.NodeCount, got.EdgeCount)
	}
}

func TestGraphCmd_ArrowRoundTrip(t *testing.T) {
	isolateHome(t)
	edges := writeEdges(t, 4)

	arrowOut := mustExecute(t, "graph", edges, "--format", "arrow")
	arrowPath := filepath.Join(t.TempDir(), "edges.arrow")
	if err := os.WriteFile(arrowPath, []byte(arrowOut), 0600); err != nil {
		t.Fatalf("writing arrow: %v", err)
	}

	csvOut := mustExecute(t, "graph", arrowPath, "--input-format", "arrow", "--format", "csv")
	g, err := network.Load(bytes.NewBufferString(csvOut), network.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.NumNodes() != 4 || g.NumEdges() != 12 || g.Weight(3, 4) != 12 {
		t.Errorf("round trip lost data: %d nodes, %d edges, w(3,4)=%d", g.NumNodes(), g.NumEdges(), g.Weight(3, 4))
	}
}

func TestGraphCmd_Errors(t *testing.T) {
	isolateHome(t)
	edges := writeEdges(t, 3)

	if _, _, err := execute(t, "graph", edges, "--format", "html"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, _, err := execute(t, "graph", edges, "--input-format", "parquet"); err == nil {
		t.Error("expected error for unsupported input format")
	}
	if _, _, err := execute(t, "graph", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
