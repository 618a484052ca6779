package strategy

import (
	"time"

	"tradedeck/internal/domain"
)

// Options trades the volatility environment rather than price alone:
// it wants enough movement to pay for premium and a directional bias
// strong enough to beat time decay.
type Options struct {
	cfg Config
	now func() time.Time
}

func (o *Options) Name() string { return o.cfg.Name }

func (o *Options) Timeframes() []string { return o.cfg.Timeframes }

func (o *Options) AnalyzeOpportunity(ctx Context) (*domain.Signal, error) {
	if !o.cfg.supports(ctx.Market.Timeframe) {
		return nil, nil
	}

	// Time-decay gate: a dead sideways tape burns theta with no edge.
	if ctx.Market.Volatility < o.cfg.threshold("min_volatility", 0.008) &&
		ctx.Market.Trend == domain.TrendSideways {
		return nil, nil
	}

	volEnv := volEnvironmentScore(ctx.Market)
	greeks := greeksSuitabilityScore(ctx.Market)
	bias, biasDir := directionalBiasScore(ctx.Market, ctx.Indicators)
	ml, mlDir := mlScore(ctx.Estimate)

	scores := map[string]float64{
		"vol_environment":  volEnv,
		"greeks":           greeks,
		"directional_bias": bias,
		"ml":               ml,
	}
	compositeScore := composite(o.cfg.Weights, scores)

	votes := []domain.Direction{biasDir, mlDir}
	direction := majorityDirection(votes)
	if direction == domain.DirectionHold {
		return nil, nil
	}

	confidence := compositeScore
	switch {
	case volEnv > 0.7 && biasDir == mlDir:
		confidence *= agreementBoost
	case biasDir != mlDir:
		confidence *= conflictPenalty
	}
	confidence = clip01(confidence)

	if confidence < o.cfg.MinConfidence {
		return nil, nil
	}

	lv := percentLevels(direction, ctx.Market.CurrentPrice, o.cfg.StopLossPct, o.cfg.TakeProfitPct)
	return ctx.emit(o.cfg, o.now, direction, compositeScore, confidence, lv, scores), nil
}

// volEnvironmentScore peaks around 2-4% volatility: enough movement to
// trade, not so much that premium is unaffordable.
func volEnvironmentScore(mkt domain.MarketContext) float64 {
	v := mkt.Volatility
	switch {
	case v <= 0:
		return 0
	case v < 0.01:
		return clip01(v / 0.01 * 0.5)
	case v <= 0.04:
		return clip01(0.5 + (v-0.01)/0.03*0.5)
	case v <= 0.08:
		return clip01(1 - (v-0.04)/0.04*0.6)
	default:
		return 0.3
	}
}

// greeksSuitabilityScore approximates delta/theta balance from trend
// persistence; the full greeks surface comes from the risk provider.
func greeksSuitabilityScore(mkt domain.MarketContext) float64 {
	switch mkt.Trend {
	case domain.TrendUp, domain.TrendDown:
		return clip01(0.6 + mkt.Volatility*5)
	default:
		return 0.35
	}
}

func directionalBiasScore(mkt domain.MarketContext, ind domain.IndicatorSnapshot) (float64, domain.Direction) {
	trend, trendDir := trendScore(mkt)
	momentum, momentumDir := momentumScore(ind, mkt)
	score := clip01(trend*0.6 + momentum*0.4)
	if trendDir == domain.DirectionHold {
		return score, momentumDir
	}
	return score, trendDir
}
