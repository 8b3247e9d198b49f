package simulation

import (
	"errors"
	"strings"
	"testing"

	"github.com/nvandessel/inflood/internal/diffusion"
)

// AssertNoError fails the test immediately if the scenario returned an error.
func AssertNoError(t *testing.T, result SimulationResult) {
	t.Helper()
	if result.Err != nil {
		t.Fatalf("scenario %s: unexpected error: %v", result.Scenario.Name, result.Err)
	}
}

// AssertSeedingError asserts that the scenario failed with a SeedingError
// whose reason contains reason.
func AssertSeedingError(t *testing.T, result SimulationResult, reason string) {
	t.Helper()
	var serr *diffusion.SeedingError
	if !errors.As(result.Err, &serr) {
		t.Fatalf("scenario %s: expected *SeedingError, got %v", result.Scenario.Name, result.Err)
	}
	if !strings.Contains(serr.Reason, reason) {
		t.Errorf("scenario %s: seeding reason = %q, want it to contain %q", result.Scenario.Name, serr.Reason, reason)
	}
}

// AssertInvariants checks the properties every finished cascade must hold:
//   - every event's source was infected no later than the event, and its
//     elapsed days match the source's infection day
//   - every event follows an edge of the base graph and hits an infected node
//   - an event marked as a new infection is the one that infected its target
//   - every node's histogram total equals its out-multiplicity
//   - seeds are infected on day 0 and every p0 lies in [0, 1)
//   - per-day statistics add up to the totals
func AssertInvariants(t *testing.T, result SimulationResult) {
	t.Helper()
	AssertNoError(t, result)
	res, g := result.Result, result.Graph

	newInfections := make(map[int64]int)
	for _, ev := range res.Influence.Events() {
		src, ok := res.Infections.Get(ev.Source)
		if !ok {
			t.Errorf("AssertInvariants: source %d of %+v is not infected", ev.Source, ev)
			continue
		}
		if ev.Day < src.InfectedAt {
			t.Errorf("AssertInvariants: event %+v precedes its source's infection on day %d", ev, src.InfectedAt)
		}
		if ev.Elapsed != ev.Day-src.InfectedAt {
			t.Errorf("AssertInvariants: event %+v elapsed does not match infection day %d", ev, src.InfectedAt)
		}
		if g.Weight(ev.Source, ev.Target) == 0 {
			t.Errorf("AssertInvariants: event %+v follows no base edge", ev)
		}

		tgt, ok := res.Infections.Get(ev.Target)
		if !ok {
			t.Errorf("AssertInvariants: target %d of %+v is not infected", ev.Target, ev)
			continue
		}
		if ev.NewInfection {
			newInfections[ev.Target]++
			if tgt.InfectedAt != ev.Day {
				t.Errorf("AssertInvariants: event %+v infected a node recorded on day %d", ev, tgt.InfectedAt)
			}
		}
	}
	for n, count := range newInfections {
		if count != 1 {
			t.Errorf("AssertInvariants: node %d newly infected %d times", n, count)
		}
	}
	if got, want := len(newInfections), res.Infections.Len()-len(res.Seeds); got != want {
		t.Errorf("AssertInvariants: %d infecting events for %d non-seed infections", got, want)
	}

	for _, n := range res.Infections.Nodes() {
		st, _ := res.Infections.Get(n)
		if st.P0 < 0 || st.P0 >= 1 {
			t.Errorf("AssertInvariants: node %d p0 = %v, want [0, 1)", n, st.P0)
		}
		if got, want := res.Histogram.Total(n), res.Influence.OutMultiplicity(n); got != want {
			t.Errorf("AssertInvariants: node %d histogram total %d != out-multiplicity %d", n, got, want)
		}
	}

	for _, s := range res.Seeds {
		if st, _ := res.Infections.Get(s); st.InfectedAt != 0 {
			t.Errorf("AssertInvariants: seed %d infected on day %d, want 0", s, st.InfectedAt)
		}
	}

	events, infected := 0, 0
	for _, d := range res.Days {
		events += d.Events
		infected += d.NewInfections
	}
	if events != res.Influence.Len() {
		t.Errorf("AssertInvariants: day events sum to %d, want %d", events, res.Influence.Len())
	}
	if infected+len(res.Seeds) != res.Infections.Len() {
		t.Errorf("AssertInvariants: day infections sum to %d, want %d", infected, res.Infections.Len()-len(res.Seeds))
	}
}

// AssertNonEmpty asserts that at least one propagation event was recorded.
func AssertNonEmpty(t *testing.T, result SimulationResult) {
	t.Helper()
	AssertNoError(t, result)
	if result.Result.Influence.Len() == 0 {
		t.Errorf("scenario %s: influence graph is empty", result.Scenario.Name)
	}
}

// AssertFiredOn asserts that each of nodes made at least one attempt on day.
func AssertFiredOn(t *testing.T, result SimulationResult, day int, nodes ...int64) {
	t.Helper()
	AssertNoError(t, result)
	fired := make(map[int64]bool)
	for _, ev := range result.Result.Influence.Events() {
		if ev.Day == day {
			fired[ev.Source] = true
		}
	}
	for _, n := range nodes {
		if !fired[n] {
			t.Errorf("scenario %s: node %d made no attempt on day %d", result.Scenario.Name, n, day)
		}
	}
}

// AssertNeverFired asserts that none of nodes ever made an attempt.
func AssertNeverFired(t *testing.T, result SimulationResult, nodes ...int64) {
	t.Helper()
	AssertNoError(t, result)
	for _, n := range nodes {
		if m := result.Result.Influence.OutMultiplicity(n); m != 0 {
			t.Errorf("scenario %s: node %d made %d attempts, want 0", result.Scenario.Name, n, m)
		}
	}
}

// AssertInfectedBy asserts that each of nodes is infected no later than day.
func AssertInfectedBy(t *testing.T, result SimulationResult, day int, nodes ...int64) {
	t.Helper()
	AssertNoError(t, result)
	for _, n := range nodes {
		st, ok := result.Result.Infections.Get(n)
		if !ok {
			t.Errorf("scenario %s: node %d never infected", result.Scenario.Name, n)
			continue
		}
		if st.InfectedAt > day {
			t.Errorf("scenario %s: node %d infected on day %d, want <= %d", result.Scenario.Name, n, st.InfectedAt, day)
		}
	}
}

// AssertArchived asserts that the archived run matches the in-memory result.
func AssertArchived(t *testing.T, result SimulationResult) {
	t.Helper()
	AssertNoError(t, result)
	run, res := result.Run, result.Result
	if run == nil {
		t.Fatalf("scenario %s: run was not archived", result.Scenario.Name)
	}
	if run.Infected != res.Infections.Len() || len(run.Infections) != run.Infected {
		t.Errorf("AssertArchived: infected = %d (%d rows), want %d", run.Infected, len(run.Infections), res.Infections.Len())
	}
	if run.Events != res.Influence.Len() {
		t.Errorf("AssertArchived: events = %d, want %d", run.Events, res.Influence.Len())
	}
	bins := 0
	for _, b := range run.Histogram {
		bins += b.Count
	}
	if bins != res.Influence.Len() {
		t.Errorf("AssertArchived: histogram counts sum to %d, want %d", bins, res.Influence.Len())
	}
	ig, err := run.InfluenceGraph()
	if err != nil {
		t.Fatalf("AssertArchived: InfluenceGraph: %v", err)
	}
	collapsed, err := res.Influence.Collapse()
	if err != nil {
		t.Fatalf("AssertArchived: Collapse: %v", err)
	}
	for _, e := range collapsed.Edges() {
		if got := ig.Weight(e.From, e.To); got != e.Weight {
			t.Errorf("AssertArchived: edge %d->%d weight %d, want %d", e.From, e.To, got, e.Weight)
		}
	}
}
