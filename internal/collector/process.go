// Per-entity OS metrics: CPU%, resident memory, start time, uptime.
// Uses gopsutil for cross-platform process accounting.
package collector

import (
	"context"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/javamon/jvm-exporter/internal/catalog"
	"github.com/javamon/jvm-exporter/internal/rate"
	"github.com/javamon/jvm-exporter/internal/snapshot"
)

// tcpStates is the fixed vocabulary for the connection-state family. Every
// state is reported each cycle, zero included, so the label set stays stable
// as connections come and go.
var tcpStates = []string{
	"ESTABLISHED",
	"SYN_SENT",
	"SYN_RECV",
	"FIN_WAIT1",
	"FIN_WAIT2",
	"TIME_WAIT",
	"CLOSE",
	"CLOSE_WAIT",
	"LAST_ACK",
	"LISTEN",
	"CLOSING",
}

// tallyTCPStates counts connections per state over the fixed vocabulary.
// States outside the vocabulary are dropped rather than minting new label
// values.
func tallyTCPStates(conns []gnet.ConnectionStat) map[string]float64 {
	counts := make(map[string]float64, len(tcpStates))
	for _, s := range tcpStates {
		counts[s] = 0
	}
	for _, c := range conns {
		if _, ok := counts[c.Status]; ok {
			counts[c.Status]++
		}
	}
	return counts
}

// collectProcesses records OS-level samples for every entity in the catalog.
// An entity whose process disappeared mid-cycle contributes no samples; it
// will be absent from the next catalog anyway.
func (r *Refresher) collectProcesses(ctx context.Context, b *snapshot.Builder, entities []catalog.Entity) {
	var totalMem float64
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		totalMem = float64(vm.Total)
	}

	for _, e := range entities {
		p := r.proc(e.PID)
		if p == nil {
			continue
		}
		labels := snapshot.L(
			"container", e.Kind.Container(),
			"pid", strconv.Itoa(int(e.PID)),
			"process_name", e.Name,
		)

		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			// Handle went stale (pid exited); drop it so the next cycle
			// revalidates instead of reusing a dead handle.
			delete(r.procCache, e.PID)
			continue
		}
		b.Add("process_cpu_usage", labels, cpuPct)

		var rss float64
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			rss = float64(mi.RSS)
		}
		b.Add("process_memory_usage_bytes", labels, rss)
		b.Add("process_memory_usage_percentage", labels, rate.Percent(rss, totalMem))

		// Start time can be unavailable (notably for system-kind entities on
		// some platforms). Zero is the explicit "unavailable" sentinel; it is
		// reported rather than omitted so the label set stays stable.
		var startSecs, upSecs float64
		if ct, err := p.CreateTimeWithContext(ctx); err == nil && ct > 0 {
			startSecs = float64(ct) / 1000
			if up := time.Since(time.UnixMilli(ct)).Seconds(); up > 0 {
				upSecs = up
			}
		}
		b.Add("process_start_time_seconds", labels, startSecs)
		b.Add("process_up_time_seconds", labels, upSecs)

		// File descriptors and the nofile rlimit are unreadable on some
		// platforms and for other users' processes; zero is the same
		// "unavailable" sentinel as start time.
		var openFiles float64
		if n, err := p.NumFDsWithContext(ctx); err == nil {
			openFiles = float64(n)
		}
		b.Add("process_open_files", labels, openFiles)

		var fileLimit float64
		if rls, err := p.RlimitWithContext(ctx); err == nil {
			for _, rl := range rls {
				if rl.Resource == process.RLIMIT_NOFILE {
					fileLimit = float64(rl.Soft)
					break
				}
			}
		}
		b.Add("process_open_files_limit", labels, fileLimit)

		var conns []gnet.ConnectionStat
		if cs, err := p.ConnectionsWithContext(ctx); err == nil {
			conns = cs
		}
		counts := tallyTCPStates(conns)
		for _, state := range tcpStates {
			b.Add("process_tcp_connection_states", snapshot.L(
				"container", e.Kind.Container(),
				"pid", strconv.Itoa(int(e.PID)),
				"process_name", e.Name,
				"state", state,
			), counts[state])
		}
	}
}
