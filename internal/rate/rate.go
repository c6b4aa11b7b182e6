// Package rate derives per-second rates from monotonic counters and guards
// percentage computations. It owns the only mutable state that survives
// between refresh cycles: the previous observation per (metric kind, device)
// key. Exactly one writer updates the table per cycle.
package rate

import (
	"sync"
	"time"
)

type observation struct {
	at    time.Time
	value float64
}

// Engine computes finite-difference rates from cumulative counters.
type Engine struct {
	mu     sync.Mutex
	maxAge time.Duration
	prev   map[string]observation
}

// NewEngine returns an engine that discards history older than twice the
// refresh interval, so a device that misses a cycle restarts cold instead of
// producing a rate computed across the gap.
func NewEngine(refreshInterval time.Duration) *Engine {
	return &Engine{
		maxAge: 2 * refreshInterval,
		prev:   make(map[string]observation),
	}
}

// SetInterval moves the staleness cutoff to twice the given refresh interval.
// The interval is runtime-mutable through the config endpoint, so the caller
// re-applies it every cycle.
func (e *Engine) SetInterval(refreshInterval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxAge = 2 * refreshInterval
}

// PerSecond records the counter value observed at the given time and returns
// the per-second rate since the previous observation. It returns 0 on cold
// start, non-positive elapsed time, stale history, or a counter that moved
// backwards (reset or wrap).
func (e *Engine) PerSecond(key string, value float64, at time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, ok := e.prev[key]
	e.prev[key] = observation{at: at, value: value}
	if !ok {
		return 0
	}
	elapsed := at.Sub(last.at)
	if elapsed <= 0 || elapsed > e.maxAge {
		return 0
	}
	delta := value - last.value
	if delta < 0 {
		return 0
	}
	return delta / elapsed.Seconds()
}

// Prune drops history not refreshed since the staleness cutoff. Called once
// per cycle so removed devices do not pin table entries forever.
func (e *Engine) Prune(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, obs := range e.prev {
		if now.Sub(obs.at) > e.maxAge {
			delete(e.prev, key)
		}
	}
}

// Percent returns used/total as a percentage, with a zero total yielding 0
// rather than a division fault.
func Percent(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total * 100
}
