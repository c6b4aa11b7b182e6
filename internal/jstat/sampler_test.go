package jstat

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSample_ParsesOutput(t *testing.T) {
	s := NewSampler(zap.NewNop())
	s.run = func(_ context.Context, name string, _ []string, args ...string) ([]byte, error) {
		if name != "jstat" {
			t.Errorf("command = %q, want jstat via PATH", name)
		}
		if len(args) != 2 || args[0] != "-gc" || args[1] != "4242" {
			t.Errorf("args = %v", args)
		}
		return []byte("S0C S1C\n0.0 30720.0\n"), nil
	}

	got, err := s.Sample(context.Background(), "", time.Second, 4242, Category{Flag: "-gc", Family: "jstat_gc_metrics"})
	if err != nil {
		t.Fatal(err)
	}
	if got["S0C"] != 0 || got["S1C"] != 30720 {
		t.Errorf("parsed = %v", got)
	}
}

func TestSample_UsesJavaHome(t *testing.T) {
	s := NewSampler(zap.NewNop())
	var gotName string
	var gotEnv []string
	s.run = func(_ context.Context, name string, env []string, _ ...string) ([]byte, error) {
		gotName, gotEnv = name, env
		return []byte("A\n1\n"), nil
	}

	if _, err := s.Sample(context.Background(), "/opt/jdk", time.Second, 1, Categories[0]); err != nil {
		t.Fatal(err)
	}
	if gotName != ToolPath("/opt/jdk", "jstat") {
		t.Errorf("command = %q", gotName)
	}
	if gotEnv == nil {
		t.Error("expected JAVA_HOME environment for configured java home")
	}
}

func TestSample_LogsOncePerFailureStreak(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewSampler(zap.New(core))

	fail := errors.New("no such process")
	calls := 0
	s.run = func(context.Context, string, []string, ...string) ([]byte, error) {
		calls++
		if calls == 3 {
			return []byte("A\n1\n"), nil
		}
		return nil, fail
	}

	cat := Categories[1]
	// Two consecutive failures: one warning.
	for i := 0; i < 2; i++ {
		if _, err := s.Sample(context.Background(), "", time.Second, 7, cat); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := logs.Len(); got != 1 {
		t.Fatalf("warnings after first streak = %d, want 1", got)
	}

	// Success resets the streak.
	if _, err := s.Sample(context.Background(), "", time.Second, 7, cat); err != nil {
		t.Fatal(err)
	}

	// A new failure after recovery warns again.
	if _, err := s.Sample(context.Background(), "", time.Second, 7, cat); err == nil {
		t.Fatal("expected error")
	}
	if got := logs.Len(); got != 2 {
		t.Errorf("warnings after second streak = %d, want 2", got)
	}
}

func TestSample_StreaksTrackedPerPidAndCommand(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewSampler(zap.New(core))
	s.run = func(context.Context, string, []string, ...string) ([]byte, error) {
		return nil, errors.New("boom")
	}

	s.Sample(context.Background(), "", time.Second, 1, Categories[0])
	s.Sample(context.Background(), "", time.Second, 2, Categories[0])
	s.Sample(context.Background(), "", time.Second, 1, Categories[1])

	if got := logs.Len(); got != 3 {
		t.Errorf("warnings = %d, want one per (pid, command) pair", got)
	}
}

func TestPrune_DropsStreaksForDeadPids(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewSampler(zap.New(core))
	s.run = func(context.Context, string, []string, ...string) ([]byte, error) {
		return nil, errors.New("no such process")
	}

	cat := Categories[1]
	s.Sample(context.Background(), "", time.Second, 7, cat)
	s.Sample(context.Background(), "", time.Second, 8, cat)
	if len(s.failing) != 2 {
		t.Fatalf("streak entries = %d, want 2", len(s.failing))
	}

	// pid 7 left the entity set; its state must not pin the table forever.
	s.Prune(map[int32]bool{8: true})
	if len(s.failing) != 1 {
		t.Fatalf("streak entries after prune = %d, want 1", len(s.failing))
	}
	if _, ok := s.failing[streakKey{flag: cat.Flag, pid: 8}]; !ok {
		t.Error("live pid's streak dropped by prune")
	}

	// If the pid comes back (reuse) and fails again, that is a new streak
	// and warns again.
	s.Sample(context.Background(), "", time.Second, 7, cat)
	if got := logs.Len(); got != 3 {
		t.Errorf("warnings = %d, want 3", got)
	}
}

func TestToolPath(t *testing.T) {
	if got := ToolPath("", "jps"); got != "jps" {
		t.Errorf("ToolPath with empty home = %q", got)
	}
	if got := ToolPath("/opt/jdk", "jps"); got == "jps" {
		t.Errorf("ToolPath with home did not qualify the binary: %q", got)
	}
}
