// Package job runs the background loops: the strategy scanner and the
// performance sweep.
package job

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type StrategyExecutor interface {
	ExecuteStrategy(ctx context.Context, req service.StrategyRequest) (*domain.AggregatedRecommendation, error)
}

type PerformanceRecomputer interface {
	Recompute(ctx context.Context, limit int) (int, error)
}

type Notifier interface {
	NotifyRecommendation(ctx context.Context, rec domain.AggregatedRecommendation)
}

// SymbolUniverseProvider yields the symbols a scan tick walks. It is
// queried on every tick, so the universe can change while the scanner
// runs.
type SymbolUniverseProvider interface {
	ListSymbolsForScan(ctx context.Context) ([]string, error)
}

// WatchlistUniverse is the static universe backed by the configured
// watchlist.
type WatchlistUniverse struct {
	symbols []string
}

func NewWatchlistUniverse(symbols []string) *WatchlistUniverse {
	out := make([]string, len(symbols))
	copy(out, symbols)
	return &WatchlistUniverse{symbols: out}
}

func (u *WatchlistUniverse) ListSymbolsForScan(context.Context) ([]string, error) {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out, nil
}

// Scanner runs full orchestration cycles for the symbol universe on a
// fixed cadence, plus a slower performance sweep over the ledger.
type Scanner struct {
	tracer      trace.Tracer
	executor    StrategyExecutor
	performance PerformanceRecomputer
	notifier    Notifier
	universe    SymbolUniverseProvider

	timeframes   []string
	scanEvery    time.Duration
	sweepEvery   time.Duration
	scanRunning  atomic.Bool
	sweepRunning atomic.Bool
}

func NewScanner(
	tracer trace.Tracer,
	executor StrategyExecutor,
	performance PerformanceRecomputer,
	notifier Notifier,
	universe SymbolUniverseProvider,
	timeframes []string,
	scanEvery, sweepEvery time.Duration,
) *Scanner {
	if scanEvery <= 0 {
		scanEvery = 5 * time.Minute
	}
	if sweepEvery <= 0 {
		sweepEvery = 15 * time.Minute
	}
	return &Scanner{
		tracer:      tracer,
		executor:    executor,
		performance: performance,
		notifier:    notifier,
		universe:    universe,
		timeframes:  timeframes,
		scanEvery:   scanEvery,
		sweepEvery:  sweepEvery,
	}
}

// Start launches the scan and sweep loops. Blocks until ctx is
// cancelled.
func (s *Scanner) Start(ctx context.Context) {
	if s.executor == nil {
		log.Println("Scanner disabled: no orchestrator")
		<-ctx.Done()
		return
	}

	log.Println("Scanner starting...")
	go s.scanLoop(ctx)
	if s.performance != nil {
		go s.sweepLoop(ctx)
	}

	<-ctx.Done()
	log.Println("Scanner stopped")
}

func (s *Scanner) scanLoop(ctx context.Context) {
	s.runScan(ctx)

	ticker := time.NewTicker(s.scanEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

// runScan walks the universe once. A tick that fires while the
// previous scan is still going is skipped, never queued.
func (s *Scanner) runScan(ctx context.Context) {
	if s.universe == nil {
		return
	}
	if !s.scanRunning.CompareAndSwap(false, true) {
		log.Println("scan still in flight, skipping tick")
		return
	}
	defer s.scanRunning.Store(false)

	_, span := s.tracer.Start(ctx, "scanner.run-scan")
	defer span.End()

	symbols, err := s.universe.ListSymbolsForScan(ctx)
	if err != nil {
		log.Printf("symbol universe: %v", err)
		return
	}

	for _, symbol := range symbols {
		for _, timeframe := range s.timeframes {
			if ctx.Err() != nil {
				return
			}
			rec, err := s.executor.ExecuteStrategy(ctx, service.StrategyRequest{
				Symbol:    symbol,
				Timeframe: timeframe,
			})
			if err != nil {
				log.Printf("scan %s %s: %v", symbol, timeframe, err)
				continue
			}
			if s.notifier != nil && rec != nil {
				s.notifier.NotifyRecommendation(ctx, *rec)
			}
		}
	}
}

func (s *Scanner) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Scanner) runSweep(ctx context.Context) {
	if !s.sweepRunning.CompareAndSwap(false, true) {
		return
	}
	defer s.sweepRunning.Store(false)

	_, span := s.tracer.Start(ctx, "scanner.run-sweep")
	defer span.End()

	closed, err := s.performance.Recompute(ctx, 100)
	if err != nil {
		log.Printf("performance sweep: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("performance sweep closed %d executions", closed)
	}
}
