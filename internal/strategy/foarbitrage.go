package strategy

import (
	"math"
	"time"

	"tradedeck/internal/domain"
)

// FOArbitrage scores three independent futures/options spread setups
// (cash-futures basis, calendar spread, put-call parity) and keeps
// only the best-scoring one.
type FOArbitrage struct {
	cfg Config
	now func() time.Time
}

type spreadScore struct {
	kind      string
	score     float64
	direction domain.Direction
}

func (f *FOArbitrage) Name() string { return f.cfg.Name }

func (f *FOArbitrage) Timeframes() []string { return f.cfg.Timeframes }

func (f *FOArbitrage) AnalyzeOpportunity(ctx Context) (*domain.Signal, error) {
	if !f.cfg.supports(ctx.Market.Timeframe) {
		return nil, nil
	}

	// Arbitrage legs need two-sided liquidity to fill.
	if ctx.Market.VolumeRatio() < f.cfg.threshold("min_volume_ratio", 0.9) {
		return nil, nil
	}

	best := bestSpread(ctx.Market, ctx.Indicators)
	if best.score < f.cfg.threshold("min_spread_score", 0.35) {
		return nil, nil
	}
	if best.direction == domain.DirectionHold {
		return nil, nil
	}

	scores := map[string]float64{
		"spread":    best.score,
		"liquidity": volumeScore(ctx.Market),
		"stability": stabilityScore(ctx.Market),
	}
	scores["spread_"+best.kind] = best.score
	compositeScore := composite(f.cfg.Weights, scores)

	confidence := compositeScore
	if scores["stability"] > 0.7 {
		confidence *= 1.05
	}
	confidence = clip01(confidence)

	if confidence < f.cfg.MinConfidence {
		return nil, nil
	}

	lv := percentLevels(best.direction, ctx.Market.CurrentPrice, f.cfg.StopLossPct, f.cfg.TakeProfitPct)
	return ctx.emit(f.cfg, f.now, best.direction, compositeScore, confidence, lv, scores), nil
}

// bestSpread evaluates the three spread families independently and
// returns the strongest. Each proxy works off observable dislocations
// between price and its smoothed references; the raw derivatives chain
// lives outside the engine.
func bestSpread(mkt domain.MarketContext, ind domain.IndicatorSnapshot) spreadScore {
	candidates := []spreadScore{
		cashFuturesSpread(mkt, ind),
		calendarSpread(mkt, ind),
		putCallParitySpread(mkt, ind),
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best
}

// cashFuturesSpread treats the fast/slow EMA gap as a basis proxy:
// a stretched basis mean-reverts toward the slow leg.
func cashFuturesSpread(mkt domain.MarketContext, ind domain.IndicatorSnapshot) spreadScore {
	out := spreadScore{kind: "cash_futures", direction: domain.DirectionHold}
	if ind.EMASlow <= 0 {
		return out
	}
	basis := (ind.EMAFast - ind.EMASlow) / ind.EMASlow
	out.score = clip01(math.Abs(basis) / 0.01)
	if basis > 0 {
		out.direction = domain.DirectionSell
	} else if basis < 0 {
		out.direction = domain.DirectionBuy
	}
	return out
}

// calendarSpread compares near-term drift against the session move;
// divergence between the two horizons is the tradeable spread.
func calendarSpread(mkt domain.MarketContext, ind domain.IndicatorSnapshot) spreadScore {
	out := spreadScore{kind: "calendar", direction: domain.DirectionHold}
	if ind.BollingerMid <= 0 || mkt.CurrentPrice <= 0 {
		return out
	}
	drift := (mkt.CurrentPrice - ind.BollingerMid) / ind.BollingerMid
	divergence := drift - mkt.PriceChange
	out.score = clip01(math.Abs(divergence) / 0.015)
	if divergence > 0 {
		out.direction = domain.DirectionSell
	} else if divergence < 0 {
		out.direction = domain.DirectionBuy
	}
	return out
}

// putCallParitySpread uses the band-midline displacement as a parity
// residual proxy: price far from fair value with low volatility is a
// parity-style dislocation.
func putCallParitySpread(mkt domain.MarketContext, ind domain.IndicatorSnapshot) spreadScore {
	out := spreadScore{kind: "put_call_parity", direction: domain.DirectionHold}
	width := ind.BollingerUpper - ind.BollingerLower
	if width <= 0 || mkt.CurrentPrice <= 0 {
		return out
	}
	residual := (mkt.CurrentPrice - ind.BollingerMid) / width
	out.score = clip01(math.Abs(residual) * (1 - clip01(mkt.Volatility/0.05)))
	if residual > 0 {
		out.direction = domain.DirectionSell
	} else if residual < 0 {
		out.direction = domain.DirectionBuy
	}
	return out
}

// stabilityScore rewards quiet tape: spreads converge reliably only
// when volatility is contained.
func stabilityScore(mkt domain.MarketContext) float64 {
	return clip01(1 - mkt.Volatility/0.05)
}
