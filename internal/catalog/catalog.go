// Package catalog enumerates the processes sampled in one refresh cycle:
// JVM processes discovered through jps and non-JVM processes matched by
// configured name against the OS process table. The entity set is rebuilt
// from scratch every cycle; nothing here persists across cycles.
package catalog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Kind distinguishes the two tracked process populations.
type Kind int

const (
	KindJVM Kind = iota
	KindSystem
)

// Container returns the container label value exposed for this kind.
func (k Kind) Container() string {
	if k == KindSystem {
		return "system"
	}
	return "host"
}

// Entity is one process to sample this cycle. Keyed by (PID, Kind) within a
// single cycle only; pids are revalidated every cycle, never carried over.
type Entity struct {
	PID  int32
	Name string
	Kind Kind
}

// excludedNames are short class names never reported, jps itself included so
// the discovery tool does not show up as a monitored JVM.
var excludedNames = []string{"jps", "jstat"}

// Catalog discovers the entity set for a refresh cycle.
type Catalog struct {
	logger *zap.Logger

	runJPS  func(ctx context.Context, javaHome string) ([]byte, error)
	listOS  func(ctx context.Context) ([]procIdent, error)
	isAlive func(pid int32) bool
}

// New returns a Catalog. The discovery timeout is passed per call so runtime
// configuration changes apply on the next cycle.
func New(logger *zap.Logger) *Catalog {
	return &Catalog{
		logger:  logger,
		runJPS:  runJPS,
		listOS:  listOSProcesses,
		isAlive: alive,
	}
}

// Entities produces the authoritative process set for this cycle. JVM
// discovery fails soft: if jps is unavailable the cycle proceeds with zero
// JVM entities and the condition is logged.
func (c *Catalog) Entities(ctx context.Context, timeout time.Duration, javaHome string, fullPath bool, systemNames []string) []Entity {
	entities := c.jvmEntities(ctx, timeout, javaHome, fullPath)
	entities = append(entities, c.systemEntities(ctx, systemNames)...)
	return entities
}

func (c *Catalog) jvmEntities(ctx context.Context, timeout time.Duration, javaHome string, fullPath bool) []Entity {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := c.runJPS(ctx, javaHome)
	if err != nil {
		c.logger.Warn("jps unavailable, no JVM entities this cycle; check JDK installation and java home",
			zap.String("java_home", javaHome),
			zap.Error(err))
		return nil
	}

	var entities []Entity
	for _, e := range parseJPS(string(out), fullPath) {
		// The process may have exited between jps and now.
		if !c.isAlive(e.PID) {
			continue
		}
		entities = append(entities, e)
	}
	return entities
}

// parseJPS converts `jps -l` output into JVM entities. Each line is
// "<pid> <main-class-or-jar>"; lines without a name (the tool prints bare
// pids for some JVMs) are skipped, as are excluded tool classes.
func parseJPS(out string, fullPath bool) []Entity {
	var entities []Entity
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		pid64, err := strconv.ParseInt(parts[0], 10, 32)
		if err != nil {
			continue
		}
		name := parts[1]
		short := shortName(name)
		if isExcluded(short) {
			continue
		}
		if !fullPath {
			name = short
		}
		entities = append(entities, Entity{PID: int32(pid64), Name: name, Kind: KindJVM})
	}
	return entities
}

func (c *Catalog) systemEntities(ctx context.Context, names []string) []Entity {
	if len(names) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	procs, err := c.listOS(ctx)
	if err != nil {
		c.logger.Warn("OS process enumeration failed, no system entities this cycle", zap.Error(err))
		return nil
	}

	// A configured name matching zero processes yields no entity; multiple
	// matches yield one entity per pid.
	var entities []Entity
	for _, p := range procs {
		if !wanted[p.name] {
			continue
		}
		entities = append(entities, Entity{PID: p.pid, Name: p.name, Kind: KindSystem})
	}
	return entities
}

// procIdent is the minimal identity the catalog needs from the OS process
// table.
type procIdent struct {
	pid  int32
	name string
}

// listOSProcesses enumerates the OS process table. Processes whose name
// cannot be read (exited, permission denied) are skipped.
func listOSProcesses(ctx context.Context) ([]procIdent, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	idents := make([]procIdent, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		idents = append(idents, procIdent{pid: p.Pid, name: name})
	}
	return idents, nil
}

// shortName reduces a fully qualified class path or jar path to its last
// path/package segment.
func shortName(name string) string {
	if i := strings.LastIndexAny(name, "./\\"); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return name
}

func isExcluded(short string) bool {
	for _, ex := range excludedNames {
		if strings.EqualFold(ex, short) {
			return true
		}
	}
	return false
}
