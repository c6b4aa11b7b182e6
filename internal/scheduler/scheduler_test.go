package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/javamon/jvm-exporter/internal/config"
)

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Refresh(context.Context) { c.n.Add(1) }

func fastProvider(t *testing.T, interval time.Duration) *config.Provider {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Collection.Interval = config.Duration{Duration: interval}
	return config.NewProvider(cfg)
}

func TestStart_RunsImmediately(t *testing.T) {
	ref := &countingRefresher{}
	s := New(ref, fastProvider(t, time.Hour), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ref.n.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no refresh before the first tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	// A one hour interval: the immediate cycle is the only one.
	if got := ref.n.Load(); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestStart_TicksAtInterval(t *testing.T) {
	ref := &countingRefresher{}
	s := New(ref, fastProvider(t, 20*time.Millisecond), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ref.n.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("refreshes = %d, want at least 3", ref.n.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestStart_StopsOnCancel(t *testing.T) {
	ref := &countingRefresher{}
	s := New(ref, fastProvider(t, 10*time.Millisecond), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
