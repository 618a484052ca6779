package strategy

import (
	"time"

	"tradedeck/internal/domain"
)

// Scalping hunts short intraday momentum bursts confirmed by volume.
type Scalping struct {
	cfg Config
	now func() time.Time
}

func (s *Scalping) Name() string { return s.cfg.Name }

func (s *Scalping) Timeframes() []string { return s.cfg.Timeframes }

func (s *Scalping) AnalyzeOpportunity(ctx Context) (*domain.Signal, error) {
	if !s.cfg.supports(ctx.Market.Timeframe) {
		return nil, nil
	}

	// Hard gates: thin volume and runaway volatility are unscalpable.
	if ctx.Market.VolumeRatio() < s.cfg.threshold("min_volume_ratio", 1.2) {
		return nil, nil
	}
	if ctx.Market.Volatility > s.cfg.threshold("max_volatility", 0.06) {
		return nil, nil
	}

	momentum, momentumDir := momentumScore(ctx.Indicators, ctx.Market)
	technical, technicalDir := technicalScore(ctx.Indicators)
	pattern, patternDir := patternScore(ctx.Patterns)
	ml, mlDir := mlScore(ctx.Estimate)

	scores := map[string]float64{
		"momentum":  momentum,
		"volume":    volumeScore(ctx.Market),
		"technical": technical,
		"pattern":   pattern,
		"ml":        ml,
	}
	compositeScore := composite(s.cfg.Weights, scores)

	votes := []domain.Direction{momentumDir, technicalDir, patternDir, mlDir}
	direction := majorityDirection(votes)
	if direction == domain.DirectionHold {
		return nil, nil
	}

	confidence := compositeScore
	switch {
	case momentumDir == technicalDir && technicalDir == mlDir:
		confidence *= agreementBoost
	case voteMargin(votes) < 0.5:
		confidence *= conflictPenalty
	}
	confidence = clip01(confidence)

	if confidence < s.cfg.MinConfidence {
		return nil, nil
	}

	lv := percentLevels(direction, ctx.Market.CurrentPrice, s.cfg.StopLossPct, s.cfg.TakeProfitPct)
	return ctx.emit(s.cfg, s.now, direction, compositeScore, confidence, lv, scores), nil
}
