// Host-level metrics: per-core CPU, memory, swap, disks, network rates,
// uptime. Uses gopsutil for cross-platform system accounting.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/javamon/jvm-exporter/internal/snapshot"
)

// pseudoFSTypes contains filesystem types excluded from disk metrics:
// virtual/system filesystems and network/remote filesystems that don't
// represent local storage devices.
var pseudoFSTypes = map[string]bool{
	"devfs":       true,
	"autofs":      true,
	"tmpfs":       true,
	"sysfs":       true,
	"proc":        true,
	"procfs":      true,
	"devtmpfs":    true,
	"cgroup":      true,
	"cgroup2":     true,
	"overlay":     true,
	"squashfs":    true,
	"nsfs":        true,
	"debugfs":     true,
	"tracefs":     true,
	"securityfs":  true,
	"configfs":    true,
	"fusectl":     true,
	"mqueue":      true,
	"hugetlbfs":   true,
	"binfmt_misc": true,
	"efivarfs":    true,
	"bpf":         true,
	"ramfs":       true,
	"nfs":         true,
	"nfs4":        true,
	"cifs":        true,
	"smbfs":       true,
	"fuse.sshfs":  true,
	"9p":          true,
	"glusterfs":   true,
	"ceph":        true,
	"fuse.ceph":   true,
}

// isRuntimeMount filters container-runtime bind mounts that duplicate the
// backing device's usage.
func isRuntimeMount(mount string) bool {
	return strings.Contains(mount, "docker") ||
		strings.Contains(mount, "containerd") ||
		strings.Contains(mount, "kubelet")
}

// collectSystem records the host-wide families. Each probe fails soft: an
// unavailable subsystem contributes no samples this cycle.
func (r *Refresher) collectSystem(ctx context.Context, b *snapshot.Builder, now time.Time) {
	if cores, err := cpu.PercentWithContext(ctx, 0, true); err == nil {
		for i, pct := range cores {
			b.Add("system_cpu_usage_percentage", snapshot.L("cpu", fmt.Sprintf("cpu_%d", i)), pct)
		}
	} else {
		r.logger.Debug("CPU sampling failed", zap.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		b.Add("system_memory_usage_bytes", snapshot.L("memory_type", "used"), float64(vm.Used))
		b.Add("system_total_memory_bytes", snapshot.L("memory_type", "total"), float64(vm.Total))
	} else {
		r.logger.Debug("Memory sampling failed", zap.Error(err))
	}

	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		b.Add("system_swap_usage_bytes", snapshot.L("swap_type", "used"), float64(sw.Used))
		b.Add("system_total_swap_bytes", snapshot.L("swap_type", "total"), float64(sw.Total))
	}

	r.collectDisks(ctx, b)
	r.collectNetwork(ctx, b, now)

	if up, err := host.UptimeWithContext(ctx); err == nil {
		b.Add("system_uptime_seconds", snapshot.L("type", "system"), float64(up))
	}
}

func (r *Refresher) collectDisks(ctx context.Context, b *snapshot.Builder) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		r.logger.Debug("Disk enumeration failed", zap.Error(err))
		return
	}
	for _, p := range partitions {
		if pseudoFSTypes[p.Fstype] || isRuntimeMount(p.Mountpoint) {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue // inaccessible partition
		}
		if usage.Total == 0 {
			continue
		}
		labels := snapshot.L("disk", p.Device, "mount_point", p.Mountpoint)
		b.Add("system_disk_usage_bytes", labels, float64(usage.Used))
		b.Add("system_total_disk_bytes", labels, float64(usage.Total))
	}
}

// collectNetwork feeds per-interface cumulative byte counters through the
// rate engine. Cold start and interfaces that vanish and reappear report 0
// for one cycle.
func (r *Refresher) collectNetwork(ctx context.Context, b *snapshot.Builder, now time.Time) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		r.logger.Debug("Network sampling failed", zap.Error(err))
		return
	}
	for _, c := range counters {
		rx := r.rates.PerSecond("net_rx#"+c.Name, float64(c.BytesRecv), now)
		tx := r.rates.PerSecond("net_tx#"+c.Name, float64(c.BytesSent), now)
		b.Add("system_network_receive_bytes_per_sec", snapshot.L("interface", c.Name), rx)
		b.Add("system_network_transmit_bytes_per_sec", snapshot.L("interface", c.Name), tx)
	}
}
