package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------

func TestStartOrRestartFetchesImmediately(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var calls int32
	done := make(chan struct{})
	s.Register("src", time.Hour, func(ctx context.Context, gen uint64) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(done)
		}
	})

	s.StartOrRestart("src")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first fetch did not run immediately")
	}
}

// -----------------------------------------------------------------------------

func TestRestartBumpsGeneration(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	s.Register("src", time.Hour, func(ctx context.Context, gen uint64) {})

	s.StartOrRestart("src")
	gen1 := s.Generation("src")
	s.StartOrRestart("src")
	gen2 := s.Generation("src")

	if gen2 != gen1+1 {
		t.Errorf("generation after restart = %d, want %d", gen2, gen1+1)
	}
	if s.Current("src", gen1) {
		t.Error("the old generation must not be current after a restart")
	}
	if !s.Current("src", gen2) {
		t.Error("the new generation must be current")
	}
}

// -----------------------------------------------------------------------------

func TestRestartCancelsOldContext(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	ctxs := make(chan context.Context, 2)
	s.Register("src", time.Hour, func(ctx context.Context, gen uint64) {
		ctxs <- ctx
	})

	s.StartOrRestart("src")
	first := <-ctxs
	s.StartOrRestart("src")
	<-ctxs

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("restart must cancel the previous cycle's context")
	}
}

// -----------------------------------------------------------------------------

func TestSourcesAreIndependent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	s.Register("a", time.Hour, func(ctx context.Context, gen uint64) {})
	s.Register("b", time.Hour, func(ctx context.Context, gen uint64) {})

	s.StartOrRestart("a")
	s.StartOrRestart("b")
	genB := s.Generation("b")

	s.StartOrRestart("a")
	s.StartOrRestart("a")

	if got := s.Generation("b"); got != genB {
		t.Errorf("generation of b = %d, restarting a must not touch b", got)
	}
}

// -----------------------------------------------------------------------------

func TestStopPreventsFurtherFetches(t *testing.T) {
	s := NewScheduler()

	var calls int32
	s.Register("src", 10*time.Millisecond, func(ctx context.Context, gen uint64) {
		atomic.AddInt32(&calls, 1)
	})
	s.StartOrRestart("src")
	s.Stop()

	settled := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != settled {
		t.Errorf("fetches continued after Stop: %d -> %d", settled, got)
	}
}
