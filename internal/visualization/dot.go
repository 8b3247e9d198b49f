// Package visualization renders weighted and influence graphs in various
// output formats.
package visualization

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown render format %q (valid: dot, json)", s)
	}
}

// stageColors maps cascade stages to DOT colors.
var stageColors = map[string]string{
	"seed":   "tomato",
	"early":  "goldenrod",
	"middle": "mediumseagreen",
	"late":   "steelblue",
	"":       "lightgray",
}

// Annotations carries optional cascade information for the nodes of a
// rendered graph.
type Annotations struct {
	Seeds      map[int64]bool
	InfectedAt map[int64]int
}

// AnnotationsFrom collects the seeds and infection days of a run.
func AnnotationsFrom(res *diffusion.Result) *Annotations {
	ann := &Annotations{
		Seeds:      make(map[int64]bool, len(res.Seeds)),
		InfectedAt: make(map[int64]int, res.Infections.Len()),
	}
	for _, s := range res.Seeds {
		ann.Seeds[s] = true
	}
	for _, n := range res.Infections.Nodes() {
		st, _ := res.Infections.Get(n)
		ann.InfectedAt[n] = st.InfectedAt
	}
	return ann
}

// stage classifies a node by when it was infected.
func (a *Annotations) stage(n int64) string {
	if a == nil {
		return ""
	}
	if a.Seeds[n] {
		return "seed"
	}
	day, ok := a.InfectedAt[n]
	switch {
	case !ok:
		return ""
	case day <= 3:
		return "early"
	case day <= 10:
		return "middle"
	default:
		return "late"
	}
}

func (a *Annotations) infectedAt(n int64) (int, bool) {
	if a == nil {
		return 0, false
	}
	day, ok := a.InfectedAt[n]
	return day, ok
}

// RenderDOT produces a Graphviz DOT representation of g. Edge pen width
// grows with the logarithm of the weight.
func RenderDOT(g *network.Graph, ann *Annotations) string {
	var b strings.Builder
	b.WriteString("digraph inflood {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range g.Nodes() {
		stage := ann.stage(n)
		tooltip := "not infected"
		if day, ok := ann.infectedAt(n); ok {
			tooltip = fmt.Sprintf("infected on day %d", day)
		}
		if ann == nil {
			tooltip = fmt.Sprintf("out-weight %d", g.OutWeight(n))
		}
		b.WriteString(fmt.Sprintf("  \"%d\" [fillcolor=%q, tooltip=%q];\n", n, stageColors[stage], tooltip))
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  \"%d\" -> \"%d\" [label=\"%d\", penwidth=\"%.2f\"];\n",
			e.From, e.To, e.Weight, penWidth(e.Weight)))
	}

	b.WriteString("}\n")
	return b.String()
}

func penWidth(weight int64) float64 {
	return 1 + math.Log2(float64(weight))
}

// RenderJSON produces a JSON graph representation with nodes and edges arrays.
func RenderJSON(g *network.Graph, ann *Annotations) map[string]interface{} {
	nodes := g.Nodes()
	jsonNodes := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		entry := map[string]interface{}{
			"id":         n,
			"out_degree": g.OutDegree(n),
			"out_weight": g.OutWeight(n),
		}
		if day, ok := ann.infectedAt(n); ok {
			entry["infected_at"] = day
		}
		if stage := ann.stage(n); stage != "" {
			entry["stage"] = stage
		}
		jsonNodes = append(jsonNodes, entry)
	}

	edges := g.Edges()
	jsonEdges := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"source": e.From,
			"target": e.To,
			"weight": e.Weight,
		})
	}

	return map[string]interface{}{
		"nodes":        jsonNodes,
		"edges":        jsonEdges,
		"node_count":   len(jsonNodes),
		"edge_count":   len(jsonEdges),
		"total_weight": g.TotalWeight(),
	}
}

// Render writes g to w in the given format.
func Render(w io.Writer, g *network.Graph, ann *Annotations, format Format) error {
	switch format {
	case FormatDOT:
		_, err := io.WriteString(w, RenderDOT(g, ann))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(RenderJSON(g, ann))
	default:
		return fmt.Errorf("unknown render format %q", format)
	}
}
