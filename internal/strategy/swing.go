package strategy

import (
	"time"

	"tradedeck/internal/domain"
)

// Swing rides multi-day trends, requiring the trend and the faster
// technicals to point the same way before committing.
type Swing struct {
	cfg Config
	now func() time.Time
}

func (s *Swing) Name() string { return s.cfg.Name }

func (s *Swing) Timeframes() []string { return s.cfg.Timeframes }

func (s *Swing) AnalyzeOpportunity(ctx Context) (*domain.Signal, error) {
	if !s.cfg.supports(ctx.Market.Timeframe) {
		return nil, nil
	}

	if ctx.Market.VolumeRatio() < s.cfg.threshold("min_volume_ratio", 0.8) {
		return nil, nil
	}

	trend, trendDir := trendScore(ctx.Market)
	momentum, momentumDir := momentumScore(ctx.Indicators, ctx.Market)
	technical, technicalDir := technicalScore(ctx.Indicators)
	pattern, patternDir := patternScore(ctx.Patterns)
	ml, mlDir := mlScore(ctx.Estimate)
	alignment := alignmentScore(trendDir, technicalDir, momentumDir)

	scores := map[string]float64{
		"trend":     trend,
		"momentum":  momentum,
		"technical": technical,
		"alignment": alignment,
		"pattern":   pattern,
		"ml":        ml,
	}
	compositeScore := composite(s.cfg.Weights, scores)

	votes := []domain.Direction{trendDir, momentumDir, technicalDir, patternDir, mlDir}
	direction := majorityDirection(votes)
	if direction == domain.DirectionHold {
		return nil, nil
	}

	confidence := compositeScore
	switch {
	case ctx.Market.Trend != domain.TrendSideways && trend > 0.7 && alignment > 0.7:
		confidence *= alignmentBoost
	case voteMargin(votes) < 0.5:
		confidence *= conflictPenalty
	}
	confidence = clip01(confidence)

	if confidence < s.cfg.MinConfidence {
		return nil, nil
	}

	lv := atrLevels(
		direction,
		ctx.Market.CurrentPrice,
		ctx.Indicators.ATR,
		s.cfg.threshold("atr_stop_mult", 1.5),
		s.cfg.threshold("atr_target_mult", 3.0),
	)
	return ctx.emit(s.cfg, s.now, direction, compositeScore, confidence, lv, scores), nil
}

// alignmentScore measures multi-timeframe agreement: the slow trend
// axis against the faster technical and momentum axes.
func alignmentScore(trendDir, technicalDir, momentumDir domain.Direction) float64 {
	if trendDir == domain.DirectionHold {
		return 0.3
	}
	score := 0.4
	if technicalDir == trendDir {
		score += 0.3
	}
	if momentumDir == trendDir {
		score += 0.3
	}
	return score
}
