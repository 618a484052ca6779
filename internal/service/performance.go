package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradedeck/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Holding horizons per holding-period label. An open execution past its
// horizon is settled at the current market price.
var holdingHorizons = map[string]time.Duration{
	"minutes":   30 * time.Minute,
	"intraday":  6 * time.Hour,
	"overnight": 24 * time.Hour,
	"days":      5 * 24 * time.Hour,
	"weeks":     21 * 24 * time.Hour,
}

const defaultHoldingHorizon = 24 * time.Hour

type PerformanceStore interface {
	ListOpenExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, error)
	CloseExecution(ctx context.Context, executionID string, realizedReturn float64, closedAt time.Time) error
}

// PerformanceService settles aged executions against current prices so
// the ledger carries realized returns instead of open positions forever.
type PerformanceService struct {
	tracer trace.Tracer
	store  PerformanceStore
	market MarketDataProvider
	now    func() time.Time
}

func NewPerformanceService(tracer trace.Tracer, store PerformanceStore, market MarketDataProvider) *PerformanceService {
	return &PerformanceService{tracer: tracer, store: store, market: market, now: time.Now}
}

// Recompute walks the open executions and closes every one whose
// holding horizon has elapsed or whose stop or target has been hit.
// Returns the number of executions closed.
func (p *PerformanceService) Recompute(ctx context.Context, limit int) (int, error) {
	ctx, span := p.tracer.Start(ctx, "performance-service.recompute")
	defer span.End()

	if p.store == nil || p.market == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}

	open, err := p.store.ListOpenExecutions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list open executions: %w", err)
	}

	closed := 0
	now := p.now().UTC()
	for _, record := range open {
		mkt, err := p.market.GetMarketContext(ctx, record.Signal.Symbol, record.Signal.Timeframe)
		if err != nil || mkt == nil {
			log.Printf("performance: no price for %s %s: %v", record.Signal.Symbol, record.Signal.Timeframe, err)
			continue
		}

		price, done := settlementPrice(record, *mkt, now)
		if !done {
			continue
		}

		realized := realizedReturn(record.Signal, price)
		if err := p.store.CloseExecution(ctx, record.ExecutionID, realized, now); err != nil {
			log.Printf("performance: close %s: %v", record.ExecutionID, err)
			continue
		}
		closed++
	}
	return closed, nil
}

// settlementPrice decides whether an execution should close now and at
// what price. Stop and target fills settle at their level, horizon
// expiry settles at market.
func settlementPrice(record domain.ExecutionRecord, mkt domain.MarketContext, now time.Time) (float64, bool) {
	sig := record.Signal
	switch sig.Direction {
	case domain.DirectionBuy:
		if sig.StopLoss > 0 && mkt.CurrentPrice <= sig.StopLoss {
			return sig.StopLoss, true
		}
		if sig.TakeProfit > 0 && mkt.CurrentPrice >= sig.TakeProfit {
			return sig.TakeProfit, true
		}
	case domain.DirectionSell:
		if sig.StopLoss > 0 && mkt.CurrentPrice >= sig.StopLoss {
			return sig.StopLoss, true
		}
		if sig.TakeProfit > 0 && mkt.CurrentPrice <= sig.TakeProfit {
			return sig.TakeProfit, true
		}
	}

	horizon, ok := holdingHorizons[sig.HoldingPeriod]
	if !ok {
		horizon = defaultHoldingHorizon
	}
	if now.Sub(record.CreatedAt) >= horizon {
		return mkt.CurrentPrice, true
	}
	return 0, false
}

// realizedReturn is signed from the position's point of view: a sell
// profits when price falls.
func realizedReturn(sig domain.Signal, exitPrice float64) float64 {
	if sig.EntryPrice <= 0 {
		return 0
	}
	ret := (exitPrice - sig.EntryPrice) / sig.EntryPrice
	if sig.Direction == domain.DirectionSell {
		ret = -ret
	}
	return ret
}
