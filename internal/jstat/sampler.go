// Package jstat invokes the JDK statistics tool for discovered JVM processes
// and parses its tabular output into metric maps.
package jstat

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category is one jstat subcommand sampled per JVM process, together with
// the metric family its values are published under.
type Category struct {
	Flag   string
	Family string
}

// Categories lists the jstat subcommands run for every JVM entity each cycle.
var Categories = []Category{
	{Flag: "-class", Family: "jstat_class_metrics"},
	{Flag: "-gc", Family: "jstat_gc_metrics"},
	{Flag: "-gcutil", Family: "jstat_gcutil_metrics"},
}

// runFunc executes an external command and returns its stdout.
type runFunc func(ctx context.Context, name string, env []string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if env != nil {
		cmd.Env = env
	}
	return cmd.Output()
}

// streakKey identifies one (subcommand, pid) failure streak.
type streakKey struct {
	flag string
	pid  int32
}

// Sampler runs jstat with a bounded timeout per invocation. A process that
// exits between discovery and sampling simply yields an error for that
// entity; the caller drops its samples for the cycle.
type Sampler struct {
	logger *zap.Logger
	run    runFunc

	mu      sync.Mutex
	failing map[streakKey]bool
}

// NewSampler returns a Sampler. Java home and timeout are passed per call so
// runtime configuration changes apply on the next cycle.
func NewSampler(logger *zap.Logger) *Sampler {
	return &Sampler{
		logger:  logger,
		run:     runCommand,
		failing: make(map[streakKey]bool),
	}
}

// Sample invokes one jstat subcommand for a pid and parses the output.
// Failures are logged once per consecutive-failure streak, not once per
// cycle, so a permanently broken pid does not flood the log.
func (s *Sampler) Sample(ctx context.Context, javaHome string, timeout time.Duration, pid int32, cat Category) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.run(ctx, ToolPath(javaHome, "jstat"), ToolEnv(javaHome), cat.Flag, strconv.Itoa(int(pid)))
	key := streakKey{flag: cat.Flag, pid: pid}
	if err != nil {
		s.mu.Lock()
		firstOfStreak := !s.failing[key]
		s.failing[key] = true
		s.mu.Unlock()
		if firstOfStreak {
			s.logger.Warn("jstat invocation failed",
				zap.String("command", cat.Flag),
				zap.Int32("pid", pid),
				zap.Error(err))
		}
		return nil, fmt.Errorf("jstat %s for pid %d: %w", cat.Flag, pid, err)
	}

	s.mu.Lock()
	delete(s.failing, key)
	s.mu.Unlock()
	return Parse(string(out)), nil
}

// Prune drops streak state for pids absent from the current entity set. A pid
// that dies for good stops being sampled, so nothing else ever clears its
// entries.
func (s *Sampler) Prune(live map[int32]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.failing {
		if !live[key.pid] {
			delete(s.failing, key)
		}
	}
}

// ToolPath resolves a JDK binary under javaHome/bin, or leaves resolution to
// PATH when no Java home is configured.
func ToolPath(javaHome, name string) string {
	if javaHome == "" {
		return name
	}
	return filepath.Join(javaHome, "bin", name)
}

// ToolEnv prepends javaHome/bin to PATH so helper binaries spawned by the
// JDK tools resolve against the same installation.
func ToolEnv(javaHome string) []string {
	if javaHome == "" {
		return nil
	}
	env := os.Environ()
	env = append(env,
		"JAVA_HOME="+javaHome,
		"PATH="+filepath.Join(javaHome, "bin")+string(os.PathListSeparator)+os.Getenv("PATH"))
	return env
}
