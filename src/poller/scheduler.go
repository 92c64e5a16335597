package poller

import (
	"context"
	"sync"
	"time"

	"p2p-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Polling scheduler
// -----------------------------------------------------------------------------

// Source keys. Each one owns an independent timer and generation
// counter.
const (
	SourceBinanceP2P = "binance_p2p"
	SourceBybitP2P   = "bybit_p2p"
	SourceReferenceA = "reference_a"
	SourceReferenceB = "reference_b"
)

// FetchFunc performs one fetch cycle. gen is the scheduler generation
// the cycle belongs to; the fetch body passes it back through Current
// before writing results so that a superseded cycle can only tag its
// result as stale, never publish it.
type FetchFunc func(ctx context.Context, gen uint64)

// -----------------------------------------------------------------------------

type source struct {
	name     string
	fetch    FetchFunc
	interval time.Duration
	gen      uint64
	cancel   context.CancelFunc
}

// Scheduler runs one polling loop per registered source. Restarting a
// source bumps its generation and cancels the previous loop, so a
// parameter change triggers an immediate fetch and the old timer can
// never fire again.
type Scheduler struct {
	mu      sync.Mutex
	sources map[string]*source
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sources: make(map[string]*source),
		baseCtx: ctx,
		stop:    cancel,
		logger:  logger.NewLogger("Scheduler"),
	}
}

// -----------------------------------------------------------------------------

// Register installs a source. Must be called before the first
// StartOrRestart for that source.
func (s *Scheduler) Register(name string, interval time.Duration, fetch FetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = &source{name: name, fetch: fetch, interval: interval}
}

// -----------------------------------------------------------------------------

// StartOrRestart begins a fresh polling cycle for the source: the
// running loop (if any) is cancelled, the generation is bumped, and the
// new loop fetches immediately before settling on the interval.
func (s *Scheduler) StartOrRestart(name string) {
	s.mu.Lock()
	src, ok := s.sources[name]
	if !ok {
		s.mu.Unlock()
		s.logger.Error("StartOrRestart for unregistered source %s", name)
		return
	}
	if src.cancel != nil {
		src.cancel()
	}
	src.gen++
	gen := src.gen
	ctx, cancel := context.WithCancel(s.baseCtx)
	src.cancel = cancel
	interval := src.interval
	fetch := src.fetch
	s.mu.Unlock()

	s.logger.Debug("Source %s restarted at generation %d", name, gen)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fetch(ctx, gen)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.Current(name, gen) {
					return
				}
				fetch(ctx, gen)
			}
		}
	}()
}

// -----------------------------------------------------------------------------

// Generation returns the source's current generation.
func (s *Scheduler) Generation(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[name]; ok {
		return src.gen
	}
	return 0
}

// Current reports whether gen is still the live generation for the
// source. Fetch bodies call this before writing results back.
func (s *Scheduler) Current(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[name]
	return ok && src.gen == gen
}

// -----------------------------------------------------------------------------

// Stop cancels every loop and waits for in-flight fetches to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, src := range s.sources {
		if src.cancel != nil {
			src.cancel()
		}
		src.gen++
	}
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}
