package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/network"
)

// sampleRun returns a fully populated run created at the given offset from
// a fixed instant.
func sampleRun(id string, offset time.Duration) *Run {
	return &Run{
		ID:         id,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset),
		GraphPath:  "edges.csv",
		GraphNodes: 4,
		GraphEdges: 5,
		Params: Params{
			Days:              10,
			Alpha:             1.17,
			P0:                0.93,
			SeedCount:         1,
			SeedMinDegree:     2,
			MaxAttemptsPerDay: 10000,
			RNGSeed:           1<<63 + 7,
		},
		Infected:      3,
		Events:        4,
		DistinctEdges: 2,
		DurationMS:    12,
		Seeds:         []int64{1},
		Edges: []network.Edge{
			{From: 1, To: 2, Weight: 3},
			{From: 2, To: 3, Weight: 1},
		},
		Infections: []Infection{
			{Node: 1, InfectedAt: 0, P0: 0.9},
			{Node: 2, InfectedAt: 1, P0: 0.93},
			{Node: 3, InfectedAt: 4, P0: 0.93},
		},
		Histogram: []HistogramBin{
			{Node: 1, Elapsed: 1, Count: 3},
			{Node: 2, Elapsed: 3, Count: 1},
		},
	}
}

// runStoreContract exercises the behavior every RunStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) RunStore) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		want := sampleRun("run-a", 0)
		if err := s.SaveRun(ctx, want); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}

		got, err := s.GetRun(ctx, "run-a")
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
		}
		got.CreatedAt = want.CreatedAt
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetRun() = %+v, want %+v", got, want)
		}
	})

	t.Run("assigns id and timestamp", func(t *testing.T) {
		s := newStore(t)
		run := sampleRun("", 0)
		run.CreatedAt = time.Time{}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		if run.ID == "" {
			t.Fatal("expected an ID to be assigned")
		}
		if run.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be assigned")
		}
		if _, err := s.GetRun(ctx, run.ID); err != nil {
			t.Errorf("GetRun(%s): %v", run.ID, err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newStore(t)
		if err := s.SaveRun(ctx, sampleRun("dup", 0)); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		if err := s.SaveRun(ctx, sampleRun("dup", time.Minute)); err == nil {
			t.Error("expected error saving a duplicate ID")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(ctx, "nope")
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		for i, id := range []string{"old", "newest", "middle"} {
			offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
			if err := s.SaveRun(ctx, sampleRun(id, offset)); err != nil {
				t.Fatalf("SaveRun(%s): %v", id, err)
			}
		}

		runs, err := s.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		var ids []string
		for _, r := range runs {
			ids = append(ids, r.ID)
			if r.Seeds != nil || r.Edges != nil || r.Infections != nil || r.Histogram != nil {
				t.Errorf("run %s: ListRuns should return headers only", r.ID)
			}
		}
		if want := []string{"newest", "middle", "old"}; !reflect.DeepEqual(ids, want) {
			t.Errorf("ListRuns() ids = %v, want %v", ids, want)
		}

		limited, err := s.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns(2): %v", err)
		}
		if len(limited) != 2 || limited[0].ID != "newest" {
			t.Errorf("ListRuns(2) = %d runs, first %v", len(limited), limited)
		}
	})

	t.Run("list empty", func(t *testing.T) {
		s := newStore(t)
		runs, err := s.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		if err := s.SaveRun(ctx, sampleRun("gone", 0)); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		if err := s.DeleteRun(ctx, "gone"); err != nil {
			t.Fatalf("DeleteRun: %v", err)
		}
		if _, err := s.GetRun(ctx, "gone"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun after delete: error = %v, want ErrRunNotFound", err)
		}
		if err := s.DeleteRun(ctx, "gone"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("second DeleteRun: error = %v, want ErrRunNotFound", err)
		}
	})

	t.Run("returned runs are copies", func(t *testing.T) {
		s := newStore(t)
		run := sampleRun("copy", 0)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		run.Seeds[0] = 99

		got, err := s.GetRun(ctx, "copy")
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if got.Seeds[0] != 1 {
			t.Errorf("stored seeds changed through caller's slice: %v", got.Seeds)
		}
		got.Edges[0].Weight = 0

		again, err := s.GetRun(ctx, "copy")
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if again.Edges[0].Weight != 3 {
			t.Errorf("stored edges changed through returned run: %v", again.Edges)
		}
	})

	t.Run("engine result", func(t *testing.T) {
		s := newStore(t)

		g := network.NewGraph()
		for i := int64(1); i <= 4; i++ {
			for j := int64(1); j <= 4; j++ {
				if i != j {
					if err := g.AddEdge(i, j, i+j); err != nil {
						t.Fatalf("AddEdge: %v", err)
					}
				}
			}
		}
		cfg := diffusion.DefaultConfig()
		cfg.Days = 5
		cfg.SeedCount = 1
		cfg.SeedMinDegree = 1
		e := diffusion.NewEngine(g, cfg, diffusion.WithSource(diffusion.NewSource(42)))
		res, err := e.Run(ctx)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		run, err := NewRun("clique.csv", g, res, 42, 3*time.Millisecond)
		if err != nil {
			t.Fatalf("NewRun: %v", err)
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		got, err := s.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}

		if got.Infected != res.Infections.Len() || len(got.Infections) != got.Infected {
			t.Errorf("infected = %d (%d rows), want %d", got.Infected, len(got.Infections), res.Infections.Len())
		}
		if got.Events != res.Influence.Len() {
			t.Errorf("events = %d, want %d", got.Events, res.Influence.Len())
		}
		if got.Params.RNGSeed != 42 || got.GraphNodes != 4 || got.GraphEdges != 12 {
			t.Errorf("unexpected header: %+v", got.header())
		}
		if !reflect.DeepEqual(got.Seeds, res.Seeds) {
			t.Errorf("seeds = %v, want %v", got.Seeds, res.Seeds)
		}
		for i, in := range got.Infections {
			if want := res.Infections.Nodes()[i]; in.Node != want {
				t.Errorf("infection %d = node %d, want %d", i, in.Node, want)
			}
		}

		ig, err := got.InfluenceGraph()
		if err != nil {
			t.Fatalf("InfluenceGraph: %v", err)
		}
		if ig.TotalWeight() != int64(res.Influence.Len()) {
			t.Errorf("influence total weight = %d, want %d", ig.TotalWeight(), res.Influence.Len())
		}
		if ig.NumEdges() != res.Influence.DistinctEdges() {
			t.Errorf("influence edges = %d, want %d", ig.NumEdges(), res.Influence.DistinctEdges())
		}
	})
}
