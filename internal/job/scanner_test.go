package job

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type stubExecutor struct {
	mu       sync.Mutex
	requests []service.StrategyRequest
	rec      *domain.AggregatedRecommendation
	block    chan struct{}
}

func (s *stubExecutor) ExecuteStrategy(ctx context.Context, req service.StrategyRequest) (*domain.AggregatedRecommendation, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	if s.rec != nil {
		out := *s.rec
		out.Symbol = req.Symbol
		out.Timeframe = req.Timeframe
		return &out, nil
	}
	return &domain.AggregatedRecommendation{
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		Recommendation: domain.DirectionHold,
	}, nil
}

func (s *stubExecutor) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubRecomputer struct {
	calls atomic.Int64
}

func (s *stubRecomputer) Recompute(context.Context, int) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	recs []domain.AggregatedRecommendation
}

func (s *stubNotifier) NotifyRecommendation(_ context.Context, rec domain.AggregatedRecommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *stubNotifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

type stubUniverse struct {
	mu    sync.Mutex
	lists [][]string
	err   error
	calls int
}

func (s *stubUniverse) ListSymbolsForScan(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.lists) == 0 {
		return nil, nil
	}
	list := s.lists[0]
	if len(s.lists) > 1 {
		s.lists = s.lists[1:]
	}
	return list, nil
}

func (s *stubUniverse) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestScanner(executor StrategyExecutor, perf PerformanceRecomputer, notifier Notifier) *Scanner {
	return NewScanner(
		trace.NewNoopTracerProvider().Tracer("test"),
		executor,
		perf,
		notifier,
		NewWatchlistUniverse([]string{"RELIANCE", "TCS"}),
		[]string{"1m"},
		time.Hour,
		10*time.Millisecond,
	)
}

func TestScannerRunsInitialScan(t *testing.T) {
	t.Parallel()

	executor := &stubExecutor{}
	notifier := &stubNotifier{}
	scanner := newTestScanner(executor, nil, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	go scanner.Start(ctx)

	eventually(t, func() bool { return executor.calls() == 2 })
	eventually(t, func() bool { return notifier.count() == 2 })
	cancel()

	executor.mu.Lock()
	defer executor.mu.Unlock()
	if executor.requests[0].Symbol != "RELIANCE" || executor.requests[1].Symbol != "TCS" {
		t.Fatalf("unexpected scan order: %+v", executor.requests)
	}
}

func TestScannerQueriesUniverseEachTick(t *testing.T) {
	executor := &stubExecutor{}
	universe := &stubUniverse{lists: [][]string{
		{"RELIANCE"},
		{"RELIANCE", "TCS", "INFY"},
	}}
	scanner := NewScanner(
		trace.NewNoopTracerProvider().Tracer("test"),
		executor,
		nil,
		nil,
		universe,
		[]string{"1m"},
		time.Hour,
		time.Hour,
	)

	ctx := context.Background()
	scanner.runScan(ctx)
	if got := executor.calls(); got != 1 {
		t.Fatalf("expected 1 cycle from the first universe, got %d", got)
	}

	// A symbol added between ticks is picked up on the next scan.
	scanner.runScan(ctx)
	if got := executor.calls(); got != 4 {
		t.Fatalf("expected 4 cycles after the universe grew, got %d", got)
	}
	if universe.count() != 2 {
		t.Fatalf("expected the universe to be queried per tick, got %d", universe.count())
	}
}

func TestScannerUniverseErrorSkipsTick(t *testing.T) {
	executor := &stubExecutor{}
	universe := &stubUniverse{err: context.DeadlineExceeded}
	scanner := NewScanner(
		trace.NewNoopTracerProvider().Tracer("test"),
		executor,
		nil,
		nil,
		universe,
		[]string{"1m"},
		time.Hour,
		time.Hour,
	)

	scanner.runScan(context.Background())
	if got := executor.calls(); got != 0 {
		t.Fatalf("expected no cycles when the universe fails, got %d", got)
	}
	if scanner.scanRunning.Load() {
		t.Fatal("scan flag must be released after a failed tick")
	}
}

func TestWatchlistUniverseCopiesSymbols(t *testing.T) {
	seed := []string{"RELIANCE", "TCS"}
	universe := NewWatchlistUniverse(seed)
	seed[0] = "mutated"

	symbols, err := universe.ListSymbolsForScan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if symbols[0] != "RELIANCE" {
		t.Fatalf("watchlist must not alias the seed slice, got %v", symbols)
	}

	symbols[1] = "mutated"
	again, _ := universe.ListSymbolsForScan(context.Background())
	if again[1] != "TCS" {
		t.Fatalf("returned slices must not alias each other, got %v", again)
	}
}

func TestScannerSkipsOverlappingTicks(t *testing.T) {
	executor := &stubExecutor{block: make(chan struct{})}
	scanner := newTestScanner(executor, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scanner.runScan(ctx)
	eventually(t, func() bool { return executor.calls() == 1 })

	// Second tick arrives while the first scan is blocked inside the
	// executor; it must bail out instead of queueing.
	scanner.runScan(ctx)
	if got := executor.calls(); got != 1 {
		t.Fatalf("expected overlapping scan to be skipped, got %d calls", got)
	}

	close(executor.block)
	eventually(t, func() bool { return !scanner.scanRunning.Load() })

	// With the first scan finished, ticks run again.
	scanner.runScan(ctx)
	if got := executor.calls(); got < 3 {
		t.Fatalf("expected scan to resume, got %d calls", got)
	}
}

func TestScannerRunsPerformanceSweep(t *testing.T) {
	t.Parallel()

	executor := &stubExecutor{}
	perf := &stubRecomputer{}
	scanner := newTestScanner(executor, perf, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go scanner.Start(ctx)

	eventually(t, func() bool { return perf.calls.Load() > 0 })
	cancel()
}

func TestScannerWithoutExecutorIdles(t *testing.T) {
	t.Parallel()

	scanner := newTestScanner(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		scanner.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop on cancel")
	}
}
