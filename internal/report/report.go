// Package report summarizes a finished cascade for humans and machines.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/nvandessel/inflood/internal/diffusion"
	"gonum.org/v1/gonum/stat"
)

// DefaultTop is the number of top influencers listed by default.
const DefaultTop = 10

// Influencer is a node ranked by the propagation events it generated.
type Influencer struct {
	Node       int64 `json:"node"`
	Events     int   `json:"events"`
	Targets    int   `json:"targets"`
	InfectedAt int   `json:"infected_at"`
}

// Summary describes one run.
type Summary struct {
	Seeds             []int64      `json:"seeds"`
	Days              int          `json:"days"`
	Infected          int          `json:"infected"`
	NewInfections     int          `json:"new_infections"`
	Events            int          `json:"events"`
	DistinctEdges     int          `json:"distinct_edges"`
	RepeatExposures   int          `json:"repeat_exposures"`
	PeakDay           int          `json:"peak_day"`
	PeakInfections    int          `json:"peak_infections"`
	Reach             []int        `json:"reach"`
	ElapsedMean       float64      `json:"elapsed_mean"`
	ElapsedStdDev     float64      `json:"elapsed_std_dev"`
	ElapsedMedian     float64      `json:"elapsed_median"`
	ElapsedMax        int          `json:"elapsed_max"`
	RoundingFallbacks int          `json:"rounding_fallbacks"`
	CappedLoops       int          `json:"capped_loops"`
	TopInfluencers    []Influencer `json:"top_influencers"`
}

// Summarize computes the summary of res, listing at most top influencers.
func Summarize(res *diffusion.Result, top int) Summary {
	s := Summary{
		Seeds:             append([]int64(nil), res.Seeds...),
		Days:              len(res.Days),
		Infected:          res.Infections.Len(),
		NewInfections:     res.Infections.Len() - len(res.Seeds),
		Events:            res.Influence.Len(),
		DistinctEdges:     res.Influence.DistinctEdges(),
		RoundingFallbacks: res.RoundingFallbacks,
		CappedLoops:       res.CappedLoops,
		Reach:             make([]int, 0, len(res.Days)),
	}
	s.RepeatExposures = s.Events - s.NewInfections

	reach := len(res.Seeds)
	for _, d := range res.Days {
		reach += d.NewInfections
		s.Reach = append(s.Reach, reach)
		if d.NewInfections > s.PeakInfections {
			s.PeakDay = d.Day
			s.PeakInfections = d.NewInfections
		}
	}

	s.ElapsedMean, s.ElapsedStdDev, s.ElapsedMedian, s.ElapsedMax = elapsedStats(res.Histogram)
	s.TopInfluencers = topInfluencers(res, top)
	return s
}

// elapsedStats returns the count-weighted mean, standard deviation and
// median of the elapsed days at which events happened, plus the maximum.
func elapsedStats(h *diffusion.Histogram) (mean, stdDev, median float64, max int) {
	overall := h.Overall()
	if len(overall) == 0 {
		return 0, 0, 0, 0
	}

	x := make([]float64, 0, len(overall))
	for e := range overall {
		x = append(x, float64(e))
	}
	sort.Float64s(x)

	w := make([]float64, len(x))
	total := 0.0
	for i, e := range x {
		w[i] = float64(overall[int(e)])
		total += w[i]
	}

	mean = stat.Mean(x, w)
	if total > 1 {
		stdDev = stat.StdDev(x, w)
	}
	if math.IsNaN(stdDev) {
		stdDev = 0
	}
	median = stat.Quantile(0.5, stat.Empirical, x, w)
	max = int(x[len(x)-1])
	return mean, stdDev, median, max
}

func topInfluencers(res *diffusion.Result, top int) []Influencer {
	sources := res.Influence.Sources()
	out := make([]Influencer, 0, len(sources))
	for _, n := range sources {
		st, _ := res.Infections.Get(n)
		out = append(out, Influencer{
			Node:       n,
			Events:     res.Influence.OutMultiplicity(n),
			Targets:    len(res.Influence.Targets(n)),
			InfectedAt: st.InfectedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Events > out[j].Events
	})
	if top >= 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

// WriteText writes a human-readable rendering of s.
func WriteText(w io.Writer, s Summary) error {
	var b strings.Builder

	seeds := make([]string, len(s.Seeds))
	for i, n := range s.Seeds {
		seeds[i] = fmt.Sprintf("%d", n)
	}

	fmt.Fprintf(&b, "Cascade Summary\n")
	fmt.Fprintf(&b, "===============\n\n")
	fmt.Fprintf(&b, "  Seeds:             %s\n", strings.Join(seeds, ", "))
	fmt.Fprintf(&b, "  Days simulated:    %d\n", s.Days)
	fmt.Fprintf(&b, "  Infected nodes:    %d (%d new)\n", s.Infected, s.NewInfections)
	fmt.Fprintf(&b, "  Influence events:  %d (%d distinct edges, %d repeat exposures)\n",
		s.Events, s.DistinctEdges, s.RepeatExposures)
	if s.PeakInfections > 0 {
		fmt.Fprintf(&b, "  Peak day:          %d (%d new infections)\n", s.PeakDay, s.PeakInfections)
	}
	if s.Events > 0 {
		fmt.Fprintf(&b, "  Elapsed days:      mean %.2f, std dev %.2f, median %.0f, max %d\n",
			s.ElapsedMean, s.ElapsedStdDev, s.ElapsedMedian, s.ElapsedMax)
	}
	if s.RoundingFallbacks > 0 || s.CappedLoops > 0 {
		fmt.Fprintf(&b, "  Warnings:          %d rounding fallbacks, %d capped attempt loops\n",
			s.RoundingFallbacks, s.CappedLoops)
	}

	if len(s.TopInfluencers) > 0 {
		fmt.Fprintf(&b, "\nTop Influencers\n")
		fmt.Fprintf(&b, "  %-10s %8s %8s %9s\n", "NODE", "EVENTS", "TARGETS", "INFECTED")
		for _, inf := range s.TopInfluencers {
			fmt.Fprintf(&b, "  %-10d %8d %8d %9s\n", inf.Node, inf.Events, inf.Targets, dayLabel(inf.InfectedAt))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func dayLabel(day int) string {
	if day == 0 {
		return "seed"
	}
	return fmt.Sprintf("day %d", day)
}
