// Package aggregate fuses the surviving signals of one orchestration
// cycle into a single consensus recommendation.
package aggregate

import (
	"sort"
	"time"

	"tradedeck/internal/domain"
)

type Config struct {
	// MinAverageConfidence must be exceeded, together with a direction
	// majority, before a non-hold recommendation is issued.
	MinAverageConfidence float64
	// MaxPortfolioRisk caps the additive risk share across signals
	// before the rollup escalates to high.
	MaxPortfolioRisk float64
}

func DefaultConfig() Config {
	return Config{
		MinAverageConfidence: 0.6,
		MaxPortfolioRisk:     0.10,
	}
}

// Aggregate is a pure function of the signal list: same input, same
// output, no side effects.
func Aggregate(symbol, timeframe string, signals []domain.Signal, cfg Config, now time.Time) domain.AggregatedRecommendation {
	rec := domain.AggregatedRecommendation{
		Symbol:         symbol,
		Timeframe:      timeframe,
		Recommendation: domain.DirectionHold,
		AggregateRisk:  domain.RiskLow,
		RankedSignals:  []domain.Signal{},
		Strategies:     []domain.StrategySummary{},
		Timestamp:      now.UTC(),
	}
	if len(signals) == 0 {
		return rec
	}

	ranked := make([]domain.Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var confidenceSum float64
	var buyCount, sellCount int
	summaries := make([]domain.StrategySummary, 0, len(ranked))
	for _, s := range ranked {
		confidenceSum += s.Confidence
		switch s.Direction {
		case domain.DirectionBuy:
			buyCount++
		case domain.DirectionSell:
			sellCount++
		}
		summaries = append(summaries, domain.StrategySummary{
			Name:       s.Strategy,
			Direction:  s.Direction,
			Confidence: s.Confidence,
		})
	}
	averageConfidence := confidenceSum / float64(len(ranked))

	// Vote-based, not max-based: equal counts always hold, and the
	// majority wins even when the single strongest signal disagrees.
	switch {
	case buyCount > sellCount && averageConfidence > cfg.MinAverageConfidence:
		rec.Recommendation = domain.DirectionBuy
	case sellCount > buyCount && averageConfidence > cfg.MinAverageConfidence:
		rec.Recommendation = domain.DirectionSell
	}

	rec.Confidence = averageConfidence
	rec.AggregateRisk = rollupRisk(ranked, cfg.MaxPortfolioRisk)
	rec.RankedSignals = ranked
	rec.Strategies = summaries
	top := summaries[0]
	rec.TopStrategy = &top
	rec.ExecutionCount = len(ranked)
	return rec
}

// rollupRisk adds risk contributions without netting: one individually
// high-risk signal, or a total beyond the portfolio cap, makes the
// whole recommendation high-risk.
func rollupRisk(signals []domain.Signal, maxPortfolioRisk float64) domain.RiskLevel {
	var totalRisk float64
	var mediumCount int
	for _, s := range signals {
		if s.Risk == domain.RiskHigh {
			return domain.RiskHigh
		}
		if s.Risk == domain.RiskMedium {
			mediumCount++
		}
		totalRisk += s.RiskPercent()
	}
	if totalRisk > maxPortfolioRisk {
		return domain.RiskHigh
	}
	if mediumCount*2 > len(signals) {
		return domain.RiskMedium
	}
	return domain.RiskLow
}
