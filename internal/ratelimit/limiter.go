// Package ratelimit throttles MCP tool calls with per-tool token buckets.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Limit is the allowance of one tool.
type Limit struct {
	PerMinute float64 // Sustained calls per minute
	Burst     int     // Calls allowed back to back; also the initial allowance
}

// DefaultLimits are the allowances of the inflood MCP tools. Simulations
// are expensive; listing runs is cheap.
var DefaultLimits = map[string]Limit{
	"inflood_simulate": {PerMinute: 10, Burst: 3},
	"inflood_runs":     {PerMinute: 60, Burst: 10},
}

// ExceededError is returned when a tool has used up its allowance.
type ExceededError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Second))
}

// Limiter holds one token bucket per limited tool. Tools without a Limit
// are never throttled. A nil Limiter allows everything. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// New creates a limiter enforcing limits. Nil means DefaultLimits.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Check takes one token from tool's bucket, or returns an *ExceededError
// saying when the next token is due.
func (l *Limiter) Check(tool string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[tool]
	if !ok {
		return nil
	}

	now := l.now()
	b, ok := l.buckets[tool]
	if !ok {
		b = &bucket{tokens: float64(limit.Burst), last: now}
		l.buckets[tool] = b
	}

	rate := limit.PerMinute / 60
	if dt := now.Sub(b.last).Seconds(); dt > 0 {
		b.tokens = math.Min(float64(limit.Burst), b.tokens+rate*dt)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return nil
	}

	retry := time.Duration(math.MaxInt64)
	if rate > 0 {
		retry = time.Duration((1 - b.tokens) / rate * float64(time.Second))
	}
	return &ExceededError{Tool: tool, RetryAfter: retry}
}

// Allow reports whether a call to tool may proceed, consuming a token if so.
func (l *Limiter) Allow(tool string) bool {
	return l.Check(tool) == nil
}
