package strategy

import (
	"time"

	"tradedeck/internal/domain"
)

// BTST (buy today, sell tomorrow) looks for strong daily closes near
// support with enough participation to carry through the overnight gap.
type BTST struct {
	cfg Config
	now func() time.Time
}

func (b *BTST) Name() string { return b.cfg.Name }

func (b *BTST) Timeframes() []string { return b.cfg.Timeframes }

func (b *BTST) AnalyzeOpportunity(ctx Context) (*domain.Signal, error) {
	if !b.cfg.supports(ctx.Market.Timeframe) {
		return nil, nil
	}

	// Overnight gap risk is a binary gate, not a penalty.
	if ctx.Market.Volatility > b.cfg.threshold("max_overnight_volatility", 0.035) {
		return nil, nil
	}
	if ctx.Market.VolumeRatio() < b.cfg.threshold("min_volume_ratio", 1.0) {
		return nil, nil
	}

	momentum, momentumDir := momentumScore(ctx.Indicators, ctx.Market)
	support, supportDir := supportScore(ctx.Indicators, ctx.Market)
	ml, mlDir := mlScore(ctx.Estimate)

	scores := map[string]float64{
		"momentum":     momentum,
		"fundamentals": fundamentalsScore(ctx.Market),
		"support":      support,
		"volume":       volumeScore(ctx.Market),
		"ml":           ml,
	}
	compositeScore := composite(b.cfg.Weights, scores)

	votes := []domain.Direction{momentumDir, supportDir, mlDir}
	direction := majorityDirection(votes)
	if direction == domain.DirectionHold {
		return nil, nil
	}

	confidence := compositeScore
	if ctx.Market.Volatility < 0.02 {
		// Calm close lowers the odds of a gap against the position.
		confidence *= agreementBoost
	} else if voteMargin(votes) < 0.5 {
		confidence *= conflictPenalty
	}
	confidence = clip01(confidence)

	if confidence < b.cfg.MinConfidence {
		return nil, nil
	}

	lv := supportLevels(direction, ctx.Market.CurrentPrice, ctx.Indicators, b.cfg)
	return ctx.emit(b.cfg, b.now, direction, compositeScore, confidence, lv, scores), nil
}

// fundamentalsScore proxies end-of-day strength from the session's
// price change; the full fundamental feed lives outside the engine.
func fundamentalsScore(mkt domain.MarketContext) float64 {
	return clip01(0.5 + mkt.PriceChange*10)
}

// supportScore measures proximity to the lower band for longs and the
// upper band for shorts.
func supportScore(ind domain.IndicatorSnapshot, mkt domain.MarketContext) (float64, domain.Direction) {
	width := ind.BollingerUpper - ind.BollingerLower
	if width <= 0 || mkt.CurrentPrice <= 0 {
		return neutralScore, domain.DirectionHold
	}
	pos := (mkt.CurrentPrice - ind.BollingerLower) / width
	switch {
	case pos <= 0.35:
		return clip01(1 - pos), domain.DirectionBuy
	case pos >= 0.65:
		return clip01(pos), domain.DirectionSell
	default:
		return 0.4, domain.DirectionHold
	}
}

// supportLevels anchors the stop just under support (or over
// resistance) instead of at a flat percentage.
func supportLevels(direction domain.Direction, price float64, ind domain.IndicatorSnapshot, cfg Config) levels {
	fallback := percentLevels(direction, price, cfg.StopLossPct, cfg.TakeProfitPct)
	if price <= 0 {
		return fallback
	}
	switch direction {
	case domain.DirectionBuy:
		if ind.BollingerLower > 0 && ind.BollingerLower < price {
			stop := ind.BollingerLower * 0.995
			target := price * (1 + cfg.TakeProfitPct)
			return levelsFrom(price, stop, target)
		}
	case domain.DirectionSell:
		if ind.BollingerUpper > price {
			stop := ind.BollingerUpper * 1.005
			target := price * (1 - cfg.TakeProfitPct)
			return levelsFrom(price, stop, target)
		}
	}
	return fallback
}

func levelsFrom(entry, stop, target float64) levels {
	riskDist := entry - stop
	if riskDist < 0 {
		riskDist = -riskDist
	}
	rewardDist := target - entry
	if rewardDist < 0 {
		rewardDist = -rewardDist
	}
	l := levels{entry: entry, stop: stop, target: target}
	if entry > 0 {
		l.expectedReturn = rewardDist / entry
	}
	if riskDist > 0 {
		l.riskReward = rewardDist / riskDist
	}
	return l
}
