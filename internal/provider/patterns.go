package provider

import (
	"context"
	"fmt"
	"math"

	"tradedeck/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	dojiBodyRatio      = 0.1
	hammerShadowRatio  = 2.0
	breakoutWindow     = 20
	patternMinScore    = 0.5
	engulfingBaseScore = 0.7
)

// PatternService detects simple candlestick and breakout patterns on
// the most recent candles.
type PatternService struct {
	tracer  trace.Tracer
	candles CandleSource
}

func NewPatternService(tracer trace.Tracer, candles CandleSource) *PatternService {
	return &PatternService{tracer: tracer, candles: candles}
}

func (s *PatternService) GetPatterns(ctx context.Context, symbol, timeframe string) (*domain.PatternSet, error) {
	ctx, span := s.tracer.Start(ctx, "pattern-service.get-patterns")
	defer span.End()

	candles, err := s.candles.GetCandles(ctx, symbol, timeframe, lookbackCandles)
	if err != nil {
		return nil, fmt.Errorf("get candles for %s %s: %w", symbol, timeframe, err)
	}
	normalized := normalizeCandles(candles)

	return &domain.PatternSet{
		Symbol:    symbol,
		Timeframe: timeframe,
		Patterns:  DetectPatterns(normalized),
	}, nil
}

// DetectPatterns inspects the last candles of an ordered series.
func DetectPatterns(candles []domain.Candle) []domain.Pattern {
	patterns := make([]domain.Pattern, 0, 4)
	if len(candles) < 2 {
		return patterns
	}

	if p, ok := detectEngulfing(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectHammer(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectDoji(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectBreakout(candles); ok {
		patterns = append(patterns, p)
	}
	return patterns
}

func detectEngulfing(candles []domain.Candle) (domain.Pattern, bool) {
	prev := candles[len(candles)-2]
	curr := candles[len(candles)-1]
	prevBody := math.Abs(prev.Close - prev.Open)
	currBody := math.Abs(curr.Close - curr.Open)
	if prevBody == 0 || currBody <= prevBody {
		return domain.Pattern{}, false
	}

	bullish := prev.Close < prev.Open && curr.Close > curr.Open &&
		curr.Open <= prev.Close && curr.Close >= prev.Open
	bearish := prev.Close > prev.Open && curr.Close < curr.Open &&
		curr.Open >= prev.Close && curr.Close <= prev.Open

	// Confidence grows with how much the engulfing body dominates.
	confidence := clipScore(engulfingBaseScore + 0.3*(currBody/prevBody-1))
	switch {
	case bullish:
		return domain.Pattern{Type: "bullish_engulfing", Confidence: confidence, Direction: domain.DirectionBuy}, true
	case bearish:
		return domain.Pattern{Type: "bearish_engulfing", Confidence: confidence, Direction: domain.DirectionSell}, true
	}
	return domain.Pattern{}, false
}

func detectHammer(candles []domain.Candle) (domain.Pattern, bool) {
	curr := candles[len(candles)-1]
	body := math.Abs(curr.Close - curr.Open)
	if body == 0 {
		return domain.Pattern{}, false
	}
	lowerShadow := math.Min(curr.Open, curr.Close) - curr.Low
	upperShadow := curr.High - math.Max(curr.Open, curr.Close)

	if lowerShadow >= hammerShadowRatio*body && upperShadow <= body {
		confidence := clipScore(0.5 + 0.1*(lowerShadow/body-hammerShadowRatio))
		return domain.Pattern{Type: "hammer", Confidence: confidence, Direction: domain.DirectionBuy}, true
	}
	if upperShadow >= hammerShadowRatio*body && lowerShadow <= body {
		confidence := clipScore(0.5 + 0.1*(upperShadow/body-hammerShadowRatio))
		return domain.Pattern{Type: "shooting_star", Confidence: confidence, Direction: domain.DirectionSell}, true
	}
	return domain.Pattern{}, false
}

func detectDoji(candles []domain.Candle) (domain.Pattern, bool) {
	curr := candles[len(candles)-1]
	span := curr.High - curr.Low
	if span <= 0 {
		return domain.Pattern{}, false
	}
	body := math.Abs(curr.Close - curr.Open)
	if body/span > dojiBodyRatio {
		return domain.Pattern{}, false
	}
	// Indecision: direction is hold, confidence fixed.
	return domain.Pattern{Type: "doji", Confidence: patternMinScore, Direction: domain.DirectionHold}, true
}

func detectBreakout(candles []domain.Candle) (domain.Pattern, bool) {
	if len(candles) < breakoutWindow+1 {
		return domain.Pattern{}, false
	}
	window := candles[len(candles)-1-breakoutWindow : len(candles)-1]
	high := window[0].High
	low := window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	curr := candles[len(candles)-1]
	if curr.Close > high {
		confidence := clipScore(0.6 + (curr.Close-high)/high*10)
		return domain.Pattern{Type: "breakout_high", Confidence: confidence, Direction: domain.DirectionBuy}, true
	}
	if curr.Close < low {
		confidence := clipScore(0.6 + (low-curr.Close)/low*10)
		return domain.Pattern{Type: "breakout_low", Confidence: confidence, Direction: domain.DirectionSell}, true
	}
	return domain.Pattern{}, false
}

func clipScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
