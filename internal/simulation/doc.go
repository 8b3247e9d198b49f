// Package simulation provides a scenario test harness for validating
// cascade properties of the diffusion engine.
//
// The harness exercises the real Engine and SQLiteRunStore, no mocks.
// Scenarios are Go builders that construct a base graph, pick a random or
// scripted source and optionally explicit seeds, then run one cascade and
// capture its result for property-based assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestCliqueCascade(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "clique",
//	        Edges:  simulation.Clique(6, 1),
//	        Config: &cfg,
//	    })
//	    simulation.AssertNoError(t, result)
//	    simulation.AssertInvariants(t, result)
//	}
package simulation
