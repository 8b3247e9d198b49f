// Package metrics exposes Prometheus collectors for simulation runs and
// writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the run metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	RunsCompleted     *prometheus.CounterVec
	Infections        prometheus.Counter
	Events            prometheus.Counter
	RoundingFallbacks prometheus.Counter
	CappedLoops       prometheus.Counter
	LastRunInfected   prometheus.Gauge
	LastRunDays       prometheus.Gauge
	ElapsedDays       prometheus.Histogram
	RunDuration       prometheus.Histogram
}

// NewCollector registers the run metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RunsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inflood_runs_completed_total",
			Help: "Total number of simulation runs completed, labelled by p0 mode.",
		}, []string{"p0_mode"}),

		Infections: factory.NewCounter(prometheus.CounterOpts{
			Name: "inflood_infections_total",
			Help: "Total number of infected nodes across runs, seeds included.",
		}),

		Events: factory.NewCounter(prometheus.CounterOpts{
			Name: "inflood_propagation_events_total",
			Help: "Total number of propagation events recorded across runs.",
		}),

		RoundingFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "inflood_sampler_rounding_fallbacks_total",
			Help: "Total number of roulette picks that fell back to the last neighbor.",
		}),

		CappedLoops: factory.NewCounter(prometheus.CounterOpts{
			Name: "inflood_capped_attempt_loops_total",
			Help: "Total number of node-days whose attempts hit the daily cap.",
		}),

		LastRunInfected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "inflood_last_run_infected_nodes",
			Help: "Infected nodes at the end of the most recent run.",
		}),

		LastRunDays: factory.NewGauge(prometheus.GaugeOpts{
			Name: "inflood_last_run_days",
			Help: "Simulated days of the most recent run.",
		}),

		ElapsedDays: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inflood_propagation_elapsed_days",
			Help:    "Days between a node's infection and each of its propagation events.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inflood_run_duration_seconds",
			Help:    "Wall-clock duration of simulation runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(res *diffusion.Result, duration time.Duration) {
	mode := "fixed"
	if res.Config.UsesDynamicP0() {
		mode = "dynamic"
	}
	c.RunsCompleted.WithLabelValues(mode).Inc()

	c.Infections.Add(float64(res.Infections.Len()))
	c.Events.Add(float64(res.Influence.Len()))
	c.RoundingFallbacks.Add(float64(res.RoundingFallbacks))
	c.CappedLoops.Add(float64(res.CappedLoops))
	c.LastRunInfected.Set(float64(res.Infections.Len()))
	c.LastRunDays.Set(float64(len(res.Days)))

	for elapsed, count := range res.Histogram.Overall() {
		for i := 0; i < count; i++ {
			c.ElapsedDays.Observe(float64(elapsed))
		}
	}

	c.RunDuration.Observe(duration.Seconds())
}

// WriteTextfile writes every registered metric to path in the textfile
// collector format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
