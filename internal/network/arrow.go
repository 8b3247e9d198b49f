package network

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// arrowBatchSize caps the number of rows per record batch.
const arrowBatchSize = 64 * 1024

// EdgeSchema is the Arrow schema of a serialized weighted graph.
var EdgeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "source", Type: arrow.PrimitiveTypes.Int64},
	{Name: "target", Type: arrow.PrimitiveTypes.Int64},
	{Name: "weight", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteArrow writes the edges of g as an Arrow IPC stream with EdgeSchema.
// The stream format needs no seeking, so w may be a pipe or stdout.
func WriteArrow(w io.Writer, g *Graph) error {
	mem := memory.NewGoAllocator()
	fw := ipc.NewWriter(w, ipc.WithSchema(EdgeSchema), ipc.WithAllocator(mem))

	b := array.NewRecordBuilder(mem, EdgeSchema)
	defer b.Release()
	src := b.Field(0).(*array.Int64Builder)
	dst := b.Field(1).(*array.Int64Builder)
	wgt := b.Field(2).(*array.Int64Builder)

	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		return fw.Write(rec)
	}

	edges := g.Edges()
	for i, e := range edges {
		src.Append(e.From)
		dst.Append(e.To)
		wgt.Append(e.Weight)
		if (i+1)%arrowBatchSize == 0 {
			if err := flush(); err != nil {
				fw.Close()
				return fmt.Errorf("writing arrow batch: %w", err)
			}
		}
	}
	if len(edges) == 0 || len(edges)%arrowBatchSize != 0 {
		if err := flush(); err != nil {
			fw.Close()
			return fmt.Errorf("writing arrow batch: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

// ReadArrow loads a weighted graph from an Arrow IPC stream with EdgeSchema.
func ReadArrow(r io.Reader) (*Graph, error) {
	rr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer rr.Release()

	if !rr.Schema().Equal(EdgeSchema) {
		return nil, fmt.Errorf("unexpected arrow schema: %s", rr.Schema())
	}

	g := NewGraph()
	for batch := 0; rr.Next(); batch++ {
		rec := rr.Record()
		src := rec.Column(0).(*array.Int64)
		dst := rec.Column(1).(*array.Int64)
		wgt := rec.Column(2).(*array.Int64)
		for j := 0; j < int(rec.NumRows()); j++ {
			if err := g.AddEdge(src.Value(j), dst.Value(j), wgt.Value(j)); err != nil {
				return nil, fmt.Errorf("arrow batch %d row %d: %w", batch, j, err)
			}
		}
	}
	if err := rr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return g, nil
}
