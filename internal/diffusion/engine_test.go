package diffusion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/inflood/internal/logging"
	"github.com/nvandessel/inflood/internal/network"
)

func TestEngine_Run_SeedingError(t *testing.T) {
	g := network.NewGraph()
	mustAddEdge(t, g, 1, 2, 10)

	e := NewEngine(g, DefaultConfig(), WithSource(NewSource(1)))
	_, err := e.Run(context.Background())

	var serr *SeedingError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SeedingError, got %v", err)
	}
}

func TestEngine_Run_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 0
	e := NewEngine(clique(t, 6), cfg)
	if _, err := e.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestEngine_Run_EverySeedFires(t *testing.T) {
	g := clique(t, 6)
	cfg := DefaultConfig()
	cfg.Days = 1
	cfg.P0 = 1.0
	cfg.Alpha = 1.5

	// Seeds are nodes 1..5. Each seed draws 0.0 (fires), 0.5 (roulette)
	// and 0.95 (stops).
	src := &scriptedSource{
		floats: []float64{0.0, 0.5, 0.95},
		ints:   []int{0, 1, 2, 3, 4},
	}
	res, err := NewEngine(g, cfg, WithSource(src)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Seeds) != 5 {
		t.Fatalf("got %d seeds, want 5", len(res.Seeds))
	}
	for _, s := range res.Seeds {
		if got := res.Influence.OutMultiplicity(s); got < 1 {
			t.Errorf("seed %d made %d attempts, want >= 1", s, got)
		}
		st, _ := res.Infections.Get(s)
		if st.InfectedAt != 0 || st.P0 != DefaultSeedP0 {
			t.Errorf("seed %d state = %+v", s, st)
		}
	}
	if res.Influence.Len() != 5 {
		t.Errorf("influence edges = %d, want 5", res.Influence.Len())
	}
	if len(res.Days) != 1 || res.Days[0].Active != 5 || res.Days[0].Events != 5 {
		t.Errorf("day stats = %+v", res.Days)
	}
}

func TestEngine_Run_NonEmptyWithRealSource(t *testing.T) {
	g := clique(t, 6)
	cfg := DefaultConfig()
	cfg.Days = 1
	cfg.P0 = 1.0

	for seed := uint64(1); seed <= 10; seed++ {
		res, err := NewEngine(g, cfg, WithSource(NewSource(seed))).Run(context.Background())
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if res.Influence.Len() == 0 {
			t.Errorf("seed %d: influence graph is empty", seed)
		}
		assertInvariants(t, res)
	}
}

func TestStep_InfectionDayForcesAttempt(t *testing.T) {
	g := clique(t, 6)
	cfg := DefaultConfig()

	// 0.99 never passes the Bernoulli test for p0 0.5, so only the forced
	// attempt can happen.
	e := NewEngine(g, cfg, WithSource(&scriptedSource{floats: []float64{0.99}}))
	r := e.newRun()
	r.res.Infections.infect(3, 4, 0.5)

	stats := r.step(4)

	if stats.Events != 1 {
		t.Fatalf("events = %d, want 1 forced attempt", stats.Events)
	}
	ev := r.res.Influence.Events()[0]
	if ev.Source != 3 || ev.Elapsed != 0 || ev.Day != 4 {
		t.Errorf("event = %+v", ev)
	}
	if got := r.res.Histogram.Count(3, 0); got != 1 {
		t.Errorf("Histogram.Count(3, 0) = %d, want 1", got)
	}
}

func TestStep_SnapshotExcludesSameDayInfections(t *testing.T) {
	g := network.NewGraph()
	mustAddEdge(t, g, 1, 2, 1)
	mustAddEdge(t, g, 2, 3, 1)

	cfg := DefaultConfig()
	cfg.MaxAttemptsPerDay = 1
	e := NewEngine(g, cfg, WithSource(&scriptedSource{floats: []float64{0}}))
	r := e.newRun()
	r.res.Infections.infect(1, 0, 0.9)

	r.step(1)

	if _, ok := r.res.Infections.Get(2); !ok {
		t.Fatal("node 2 should be infected on day 1")
	}
	if got := r.res.Influence.OutMultiplicity(2); got != 0 {
		t.Errorf("node 2 fired %d times on its infection day, want 0", got)
	}

	r.step(2)
	if got := r.res.Influence.OutMultiplicity(2); got != 1 {
		t.Errorf("node 2 fired %d times on day 2, want 1", got)
	}
}

func TestStep_RoundingFallbackCounted(t *testing.T) {
	g := clique(t, 3)
	e := NewEngine(g, DefaultConfig(), WithSource(&scriptedSource{floats: []float64{1.0}}))
	r := e.newRun()
	r.res.Infections.infect(1, 1, 0.5)

	r.step(1)

	if r.res.RoundingFallbacks != 1 {
		t.Errorf("RoundingFallbacks = %d, want 1", r.res.RoundingFallbacks)
	}
	ev := r.res.Influence.Events()
	if len(ev) != 1 || ev[0].Target != 3 {
		t.Errorf("events = %+v, want one event to the last neighbor 3", ev)
	}
}

func TestEngine_AttemptCap(t *testing.T) {
	g := clique(t, 3)
	cfg := DefaultConfig()
	cfg.Days = 1
	cfg.MaxAttemptsPerDay = 3

	e := NewEngine(g, cfg, WithSource(&scriptedSource{floats: []float64{0}}))
	res, err := e.RunFrom(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("RunFrom: %v", err)
	}

	if got := res.Influence.OutMultiplicity(1); got != 3 {
		t.Errorf("node 1 attempts = %d, want 3", got)
	}
	if res.CappedLoops != 1 {
		t.Errorf("CappedLoops = %d, want 1", res.CappedLoops)
	}
}

func TestEngine_ZeroOutDegreeSkipped(t *testing.T) {
	g := network.NewGraph()
	mustAddEdge(t, g, 1, 2, 1)

	cfg := DefaultConfig()
	cfg.Days = 5
	e := NewEngine(g, cfg, WithSource(&scriptedSource{floats: []float64{0}}))
	res, err := e.RunFrom(context.Background(), []int64{2})
	if err != nil {
		t.Fatalf("RunFrom: %v", err)
	}
	if res.Influence.Len() != 0 {
		t.Errorf("influence edges = %d, want 0", res.Influence.Len())
	}
	if res.Infections.Len() != 1 {
		t.Errorf("infected = %d, want 1", res.Infections.Len())
	}
}

func TestEngine_DynamicP0(t *testing.T) {
	g := network.NewGraph()
	mustAddEdge(t, g, 1, 2, 1)
	mustAddEdge(t, g, 2, 3, 8)

	cfg := DefaultConfig()
	cfg.Days = 2
	cfg.P0 = -1
	cfg.MaxAttemptsPerDay = 1

	e := NewEngine(g, cfg, WithSource(&scriptedSource{floats: []float64{0}}))
	res, err := e.RunFrom(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("RunFrom: %v", err)
	}

	st2, ok := res.Infections.Get(2)
	if !ok || st2.InfectedAt != 1 || st2.P0 != 0.5 {
		t.Errorf("node 2 state = %+v (found %v), want infected day 1 with p0 0.5", st2, ok)
	}
	st3, ok := res.Infections.Get(3)
	if !ok || st3.InfectedAt != 2 || st3.P0 != 0.9 {
		t.Errorf("node 3 state = %+v (found %v), want infected day 2 with p0 0.9", st3, ok)
	}
}

func TestEngine_ZeroDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 0
	res, err := NewEngine(clique(t, 6), cfg, WithSource(NewSource(3))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Influence.Len() != 0 || len(res.Days) != 0 {
		t.Errorf("zero-day run produced %d events, %d days", res.Influence.Len(), len(res.Days))
	}
	if res.Infections.Len() != 5 {
		t.Errorf("infected = %d, want the 5 seeds", res.Infections.Len())
	}
}

func TestEngine_Reproducible(t *testing.T) {
	g := clique(t, 12)
	cfg := DefaultConfig()
	cfg.Days = 20

	a, err := NewEngine(g, cfg, WithSource(NewSource(2024))).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEngine(g, cfg, WithSource(NewSource(2024))).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ea, eb := a.Influence.Events(), b.Influence.Events()
	if len(ea) != len(eb) {
		t.Fatalf("event counts differ: %d vs %d", len(ea), len(eb))
	}
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("event %d differs: %+v vs %+v", i, ea[i], eb[i])
		}
	}
}

func TestEngine_Invariants(t *testing.T) {
	g := clique(t, 10)
	for i := int64(10); i < 40; i++ {
		mustAddEdge(t, g, i, i+1, i%4+1)
		mustAddEdge(t, g, i+1, i-3, 2)
	}

	cfg := DefaultConfig()
	cfg.Days = 40
	for _, p0 := range []float64{0.93, -1} {
		cfg.P0 = p0
		for seed := uint64(0); seed < 5; seed++ {
			res, err := NewEngine(g, cfg, WithSource(NewSource(seed))).Run(context.Background())
			if err != nil {
				t.Fatalf("p0 %v seed %d: %v", p0, seed, err)
			}
			assertInvariants(t, res)
		}
	}
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(clique(t, 6), DefaultConfig()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEngine_EventLog(t *testing.T) {
	dir := t.TempDir()
	el := logging.NewEventLogger(dir, "trace")
	defer el.Close()

	cfg := DefaultConfig()
	cfg.Days = 3
	_, err := NewEngine(clique(t, 6), cfg,
		WithSource(NewSource(5)),
		WithEventLogger(el),
		WithLogger(logging.NewLogger("debug", &strings.Builder{})),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, logging.EventsFile))
	if err != nil {
		t.Fatalf("reading cascade log: %v", err)
	}
	for _, want := range []string{`"event":"seed"`, `"event":"day"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("cascade log missing %s", want)
		}
	}
}

// assertInvariants checks the structural properties every result must hold.
func assertInvariants(t *testing.T, res *Result) {
	t.Helper()

	for _, ev := range res.Influence.Events() {
		st, ok := res.Infections.Get(ev.Source)
		if !ok {
			t.Errorf("source %d of %+v is not infected", ev.Source, ev)
			continue
		}
		if ev.Day < st.InfectedAt {
			t.Errorf("event %+v precedes infection of its source on day %d", ev, st.InfectedAt)
		}
		if ev.Elapsed != ev.Day-st.InfectedAt {
			t.Errorf("event %+v elapsed does not match infection day %d", ev, st.InfectedAt)
		}
		if _, ok := res.Infections.Get(ev.Target); !ok {
			t.Errorf("target %d of %+v is not infected", ev.Target, ev)
		}
	}

	for _, n := range res.Infections.Nodes() {
		st, _ := res.Infections.Get(n)
		if st.P0 < 0 || st.P0 >= 1 {
			t.Errorf("node %d p0 = %v, want [0, 1)", n, st.P0)
		}
		if got, want := res.Histogram.Total(n), res.Influence.OutMultiplicity(n); got != want {
			t.Errorf("node %d histogram total %d != out-multiplicity %d", n, got, want)
		}
	}

	for _, s := range res.Seeds {
		if st, _ := res.Infections.Get(s); st.InfectedAt != 0 {
			t.Errorf("seed %d infected at %d, want 0", s, st.InfectedAt)
		}
	}
}
