// Package collector runs the refresh cycle: process discovery, external
// sampling, parsing, rate computation, and snapshot assembly. One cycle
// produces one complete snapshot; the HTTP layer only ever reads the
// previously published one.
package collector

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/javamon/jvm-exporter/internal/catalog"
	"github.com/javamon/jvm-exporter/internal/config"
	"github.com/javamon/jvm-exporter/internal/jstat"
	"github.com/javamon/jvm-exporter/internal/rate"
	"github.com/javamon/jvm-exporter/internal/snapshot"
	"github.com/shirou/gopsutil/v3/process"
)

// EntitySource produces the process set for one cycle.
type EntitySource interface {
	Entities(ctx context.Context, timeout time.Duration, javaHome string, fullPath bool, systemNames []string) []catalog.Entity
}

// JVMSampler obtains one parsed jstat block for a pid and drops per-pid
// failure state once a pid leaves the entity set.
type JVMSampler interface {
	Sample(ctx context.Context, javaHome string, timeout time.Duration, pid int32, cat jstat.Category) (map[string]float64, error)
	Prune(live map[int32]bool)
}

// Refresher owns one refresh cycle end to end. Cycles are never concurrent:
// the scheduler calls Refresh synchronously, so a slow cycle delays the next
// one instead of overlapping it.
type Refresher struct {
	provider *config.Provider
	source   EntitySource
	sampler  JVMSampler
	rates    *rate.Engine
	registry *snapshot.Registry
	logger   *zap.Logger

	// procCache keeps gopsutil process handles between cycles so CPU
	// percentages are measured against the previous cycle rather than
	// process start. Pruned against the current entity set each cycle.
	procCache map[int32]*process.Process

	collectSystemFn    func(ctx context.Context, b *snapshot.Builder, now time.Time)
	collectProcessesFn func(ctx context.Context, b *snapshot.Builder, entities []catalog.Entity)
}

// NewRefresher wires the cycle components together.
func NewRefresher(provider *config.Provider, source EntitySource, sampler JVMSampler, rates *rate.Engine, registry *snapshot.Registry, logger *zap.Logger) *Refresher {
	r := &Refresher{
		provider:  provider,
		source:    source,
		sampler:   sampler,
		rates:     rates,
		registry:  registry,
		logger:    logger,
		procCache: make(map[int32]*process.Process),
	}
	r.collectSystemFn = r.collectSystem
	r.collectProcessesFn = r.collectProcesses
	return r
}

// Registry exposes the snapshot handoff point for the scrape path.
func (r *Refresher) Registry() *snapshot.Registry { return r.registry }

// Refresh runs one complete cycle and publishes the resulting snapshot.
// Every failure mode inside the cycle is recovered locally (an entity or
// category contributes no samples); the publish itself is pure in-memory
// construction and always happens.
func (r *Refresher) Refresh(ctx context.Context) {
	cfg := r.provider.Current()
	started := time.Now()
	b := snapshot.NewBuilder()

	// The interval is runtime-mutable; keep the staleness cutoff in step.
	r.rates.SetInterval(cfg.Collection.Interval.Duration)

	entities := r.source.Entities(ctx, cfg.Collection.SampleTimeout.Duration, cfg.Java.Home, cfg.Java.DisplayFullPath, cfg.SystemProcesses)

	r.collectProcessesFn(ctx, b, entities)
	r.collectSystemFn(ctx, b, started)

	for _, res := range r.sampleJVMs(ctx, cfg, entities) {
		pid := strconv.Itoa(int(res.entity.PID))
		names := make([]string, 0, len(res.values))
		for name := range res.values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.Add(res.family, snapshot.L(
				"container", res.entity.Kind.Container(),
				"metric_name", name,
				"pid", pid,
				"process_name", res.entity.Name,
			), res.values[name])
		}
	}

	live := make(map[int32]bool, len(entities))
	for _, e := range entities {
		live[e.PID] = true
	}
	r.rates.Prune(started)
	r.sampler.Prune(live)
	r.pruneProcCache(live)

	snap := b.Snapshot()
	r.registry.Publish(snap)
	r.logger.Debug("Published snapshot",
		zap.Int("entities", len(entities)),
		zap.Int("samples", snap.Len()),
		zap.Duration("elapsed", time.Since(started)))
}

type jvmResult struct {
	family string
	entity catalog.Entity
	values map[string]float64
}

// sampleJVMs fans jstat invocations out across a bounded worker set and
// collects the parsed results. The builder is only written after all
// in-flight work has finished, keeping the snapshot cycle-consistent.
func (r *Refresher) sampleJVMs(ctx context.Context, cfg config.Config, entities []catalog.Entity) []jvmResult {
	sem := make(chan struct{}, cfg.Collection.MaxConcurrentSamples)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []jvmResult
	)

	for _, e := range entities {
		if e.Kind != catalog.KindJVM {
			continue
		}
		for _, cat := range jstat.Categories {
			wg.Add(1)
			go func(e catalog.Entity, cat jstat.Category) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				values, err := r.sampler.Sample(ctx, cfg.Java.Home, cfg.Collection.SampleTimeout.Duration, e.PID, cat)
				if err != nil || len(values) == 0 {
					return
				}
				mu.Lock()
				results = append(results, jvmResult{family: cat.Family, entity: e, values: values})
				mu.Unlock()
			}(e, cat)
		}
	}
	wg.Wait()

	// Deterministic sample order regardless of goroutine completion order.
	sort.Slice(results, func(i, j int) bool {
		if results[i].family != results[j].family {
			return results[i].family < results[j].family
		}
		return results[i].entity.PID < results[j].entity.PID
	})
	return results
}

// proc returns a cached gopsutil handle for a pid, or nil when the process
// is gone.
func (r *Refresher) proc(pid int32) *process.Process {
	if p, ok := r.procCache[pid]; ok {
		return p
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}
	r.procCache[pid] = p
	return p
}

func (r *Refresher) pruneProcCache(live map[int32]bool) {
	for pid := range r.procCache {
		if !live[pid] {
			delete(r.procCache, pid)
		}
	}
}
