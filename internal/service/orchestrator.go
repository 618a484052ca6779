// Package service hosts the orchestration layer: one cycle fans out to
// the eligible strategies, gates the results through risk, persists the
// survivors and fuses them into a single recommendation.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tradedeck/internal/aggregate"
	"tradedeck/internal/domain"
	"tradedeck/internal/regime"
	"tradedeck/internal/strategy"

	"go.opentelemetry.io/otel/trace"
)

type MarketDataProvider interface {
	GetMarketContext(ctx context.Context, symbol, timeframe string) (*domain.MarketContext, error)
}

type IndicatorProvider interface {
	GetIndicatorSnapshot(ctx context.Context, symbol, timeframe string) (*domain.IndicatorSnapshot, error)
}

type PatternProvider interface {
	GetPatterns(ctx context.Context, symbol, timeframe string) (*domain.PatternSet, error)
}

type EstimateProvider interface {
	GetEstimate(ctx context.Context, symbol, timeframe string) (*domain.MLEstimate, error)
}

type RiskProvider interface {
	Assess(signal domain.Signal) domain.RiskAssessment
	SizePosition(signal domain.Signal) domain.PositionSize
	GenerateRiskControls(signal domain.Signal) domain.RiskControls
}

type ExecutionStore interface {
	SaveExecution(ctx context.Context, record domain.ExecutionRecord) error
}

// StrategyRequest asks for one orchestration cycle. Strategy is
// optional; when empty the regime classifier picks the candidates.
type StrategyRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Strategy  string `json:"strategy,omitempty"`
}

// OrchestratorStatus is the counter snapshot exposed on the status
// endpoint.
type OrchestratorStatus struct {
	Healthy          bool  `json:"healthy"`
	CyclesTotal      int64 `json:"cycles_total"`
	CyclesFailed     int64 `json:"cycles_failed"`
	SignalsEmitted   int64 `json:"signals_emitted"`
	SignalsGated     int64 `json:"signals_gated"`
	StrategyFailures int64 `json:"strategy_failures"`
}

type Orchestrator struct {
	tracer     trace.Tracer
	registry   *strategy.Registry
	classifier *regime.Classifier
	market     MarketDataProvider
	indicators IndicatorProvider
	patterns   PatternProvider
	estimates  EstimateProvider
	risk       RiskProvider
	store      ExecutionStore
	aggCfg     aggregate.Config
	now        func() time.Time

	cyclesTotal      atomic.Int64
	cyclesFailed     atomic.Int64
	signalsEmitted   atomic.Int64
	signalsGated     atomic.Int64
	strategyFailures atomic.Int64
}

func NewOrchestrator(
	tracer trace.Tracer,
	registry *strategy.Registry,
	classifier *regime.Classifier,
	market MarketDataProvider,
	indicators IndicatorProvider,
	patterns PatternProvider,
	estimates EstimateProvider,
	risk RiskProvider,
	store ExecutionStore,
	aggCfg aggregate.Config,
) *Orchestrator {
	return &Orchestrator{
		tracer:     tracer,
		registry:   registry,
		classifier: classifier,
		market:     market,
		indicators: indicators,
		patterns:   patterns,
		estimates:  estimates,
		risk:       risk,
		store:      store,
		aggCfg:     aggCfg,
		now:        time.Now,
	}
}

// ExecuteStrategy runs one full cycle. It fails only on a malformed
// request or missing market data; strategy errors, failed risk gates
// and persistence errors degrade the result instead of aborting it.
func (o *Orchestrator) ExecuteStrategy(ctx context.Context, req StrategyRequest) (*domain.AggregatedRecommendation, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.execute-strategy")
	defer span.End()

	o.cyclesTotal.Add(1)

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Timeframe = strings.TrimSpace(req.Timeframe)
	req.Strategy = strings.ToLower(strings.TrimSpace(req.Strategy))

	if req.Symbol == "" {
		o.cyclesFailed.Add(1)
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidRequest)
	}
	if !domain.IsSupportedTimeframe(req.Timeframe) {
		o.cyclesFailed.Add(1)
		return nil, fmt.Errorf("%w: unsupported timeframe %q", domain.ErrInvalidRequest, req.Timeframe)
	}
	if req.Strategy != "" {
		if _, ok := o.registry.Get(req.Strategy); !ok {
			o.cyclesFailed.Add(1)
			return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, req.Strategy)
		}
	}

	mkt, err := o.market.GetMarketContext(ctx, req.Symbol, req.Timeframe)
	if err != nil {
		o.cyclesFailed.Add(1)
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrDataUnavailable, req.Symbol, req.Timeframe, err)
	}
	if mkt == nil {
		o.cyclesFailed.Add(1)
		return nil, fmt.Errorf("%w: %s %s", domain.ErrDataUnavailable, req.Symbol, req.Timeframe)
	}

	candidates := o.candidates(req, *mkt)
	signals := o.runCandidates(ctx, candidates, *mkt)
	o.signalsEmitted.Add(int64(len(signals)))

	passed := o.gateSignals(signals)
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].signal.Confidence > passed[j].signal.Confidence
	})
	o.persistExecutions(ctx, passed)

	rec := aggregate.Aggregate(req.Symbol, req.Timeframe, rankedSignals(passed), o.aggCfg, o.now())
	return &rec, nil
}

func (o *Orchestrator) GetAvailableStrategies(ctx context.Context) []domain.StrategyInfo {
	_, span := o.tracer.Start(ctx, "orchestrator.get-available-strategies")
	defer span.End()
	return o.registry.Infos()
}

func (o *Orchestrator) GetStatus(ctx context.Context) OrchestratorStatus {
	_, span := o.tracer.Start(ctx, "orchestrator.get-status")
	defer span.End()
	return OrchestratorStatus{
		Healthy:          true,
		CyclesTotal:      o.cyclesTotal.Load(),
		CyclesFailed:     o.cyclesFailed.Load(),
		SignalsEmitted:   o.signalsEmitted.Load(),
		SignalsGated:     o.signalsGated.Load(),
		StrategyFailures: o.strategyFailures.Load(),
	}
}

func (o *Orchestrator) candidates(req StrategyRequest, mkt domain.MarketContext) []string {
	if req.Strategy != "" {
		return []string{req.Strategy}
	}
	return o.classifier.Classify(mkt)
}

// runCandidates fans out one goroutine per candidate. A panicking or
// erroring strategy loses only its own slot in the result.
func (o *Orchestrator) runCandidates(ctx context.Context, candidates []string, mkt domain.MarketContext) []domain.Signal {
	results := make([]*domain.Signal, len(candidates))
	var wg sync.WaitGroup
	for i, name := range candidates {
		s, ok := o.registry.Get(name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(slot int, s strategy.Strategy) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.strategyFailures.Add(1)
					log.Printf("strategy %s panicked for %s %s: %v", s.Name(), mkt.Symbol, mkt.Timeframe, r)
				}
			}()

			sig, err := s.AnalyzeOpportunity(o.buildContext(ctx, mkt))
			if err != nil {
				o.strategyFailures.Add(1)
				log.Printf("strategy %s failed for %s %s: %v", s.Name(), mkt.Symbol, mkt.Timeframe, err)
				return
			}
			results[slot] = sig
		}(i, s)
	}
	wg.Wait()

	signals := make([]domain.Signal, 0, len(results))
	for _, sig := range results {
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

// buildContext assembles the per-evaluation snapshot. Optional feeds
// that fail fall back to their zero value so the strategy still runs.
func (o *Orchestrator) buildContext(ctx context.Context, mkt domain.MarketContext) strategy.Context {
	sctx := strategy.Context{Market: mkt}
	if o.indicators != nil {
		if snap, err := o.indicators.GetIndicatorSnapshot(ctx, mkt.Symbol, mkt.Timeframe); err != nil {
			log.Printf("indicator snapshot for %s %s: %v", mkt.Symbol, mkt.Timeframe, err)
		} else if snap != nil {
			sctx.Indicators = *snap
		}
	}
	if o.patterns != nil {
		if set, err := o.patterns.GetPatterns(ctx, mkt.Symbol, mkt.Timeframe); err != nil {
			log.Printf("patterns for %s %s: %v", mkt.Symbol, mkt.Timeframe, err)
		} else if set != nil {
			sctx.Patterns = *set
		}
	}
	if o.estimates != nil {
		if est, err := o.estimates.GetEstimate(ctx, mkt.Symbol, mkt.Timeframe); err != nil {
			log.Printf("ml estimate for %s %s: %v", mkt.Symbol, mkt.Timeframe, err)
		} else if est != nil {
			sctx.Estimate = *est
		}
	}
	return sctx
}

type gatedSignal struct {
	signal     domain.Signal
	assessment domain.RiskAssessment
	position   domain.PositionSize
	controls   domain.RiskControls
}

// gateSignals drops failing signals and sizes the survivors so the
// ledger records what a trade at this signal would commit.
func (o *Orchestrator) gateSignals(signals []domain.Signal) []gatedSignal {
	passed := make([]gatedSignal, 0, len(signals))
	for _, sig := range signals {
		assessment := domain.RiskAssessment{Passed: true, Level: sig.Risk, RiskPerTrade: sig.RiskPercent()}
		if o.risk != nil {
			assessment = o.risk.Assess(sig)
		}
		if !assessment.Passed {
			o.signalsGated.Add(1)
			log.Printf("risk gate dropped %s signal for %s %s: %s", sig.Strategy, sig.Symbol, sig.Timeframe, assessment.Reason)
			continue
		}
		g := gatedSignal{
			signal:     sig,
			assessment: assessment,
			controls:   domain.RiskControls{StopLoss: sig.StopLoss, TakeProfit: sig.TakeProfit},
		}
		if o.risk != nil {
			g.position = o.risk.SizePosition(sig)
			g.controls = o.risk.GenerateRiskControls(sig)
		}
		passed = append(passed, g)
	}
	return passed
}

// persistExecutions writes the ledger entries one by one in ranked
// order. A failed write is logged and skipped; the cycle still returns
// its recommendation.
func (o *Orchestrator) persistExecutions(ctx context.Context, passed []gatedSignal) {
	if o.store == nil {
		return
	}
	for _, g := range passed {
		record := domain.ExecutionRecord{
			ExecutionID: newExecutionID(),
			Strategy:    g.signal.Strategy,
			Signal:      g.signal,
			Risk:        g.assessment,
			Position:    g.position,
			Controls:    g.controls,
			Status:      domain.ExecutionPending,
			CreatedAt:   o.now().UTC(),
		}
		if err := o.store.SaveExecution(ctx, record); err != nil {
			log.Printf("persist execution %s for %s %s: %v", record.ExecutionID, g.signal.Symbol, g.signal.Strategy, err)
		}
	}
}

func rankedSignals(passed []gatedSignal) []domain.Signal {
	signals := make([]domain.Signal, 0, len(passed))
	for _, g := range passed {
		signals = append(signals, g.signal)
	}
	return signals
}

func newExecutionID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("exec-%d", time.Now().UnixNano())
	}
	return "exec-" + hex.EncodeToString(b[:])
}
