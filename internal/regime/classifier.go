// Package regime selects which strategies are eligible for the
// current market conditions.
package regime

import (
	"tradedeck/internal/domain"
)

// Axis classification thresholds. The low/normal/high buckets
// partition each axis with no gap, so a zero reading is low.
const (
	highVolatility  = 0.03
	lowVolatility   = 0.01
	highVolumeRatio = 1.5
	lowVolumeRatio  = 0.7
)

// Rule maps one regime bucket to its strategy priority list. Rules are
// evaluated in table order; matching lists are unioned in first-seen
// order and truncated to MaxConcurrent.
type Rule struct {
	Name       string
	Matches    func(domain.MarketContext) bool
	Strategies []string
}

type Config struct {
	MaxConcurrent int
	Rules         []Rule
}

type Classifier struct {
	rules         []Rule
	maxConcurrent int
}

// DefaultConfig is the built-in regime table: one bucket per axis
// value, volatility first, then volume, then trend.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		Rules: []Rule{
			{
				Name:       "high_volatility",
				Matches:    func(m domain.MarketContext) bool { return m.Volatility > highVolatility },
				Strategies: []string{"scalping", "options"},
			},
			{
				Name:       "low_volatility",
				Matches:    func(m domain.MarketContext) bool { return m.Volatility < lowVolatility },
				Strategies: []string{"btst", "swing"},
			},
			{
				Name: "normal_volatility",
				Matches: func(m domain.MarketContext) bool {
					return m.Volatility >= lowVolatility && m.Volatility <= highVolatility
				},
				Strategies: []string{"swing", "scalping"},
			},
			{
				Name:       "high_volume",
				Matches:    func(m domain.MarketContext) bool { return m.VolumeRatio() > highVolumeRatio },
				Strategies: []string{"scalping", "foarbitrage"},
			},
			{
				Name:       "low_volume",
				Matches:    func(m domain.MarketContext) bool { return m.VolumeRatio() < lowVolumeRatio },
				Strategies: []string{"btst"},
			},
			{
				Name: "normal_volume",
				Matches: func(m domain.MarketContext) bool {
					r := m.VolumeRatio()
					return r >= lowVolumeRatio && r <= highVolumeRatio
				},
				Strategies: []string{"swing"},
			},
			{
				Name:       "trending_market",
				Matches:    func(m domain.MarketContext) bool { return m.Trend == domain.TrendUp || m.Trend == domain.TrendDown },
				Strategies: []string{"swing", "btst"},
			},
			{
				Name:       "sideways_market",
				Matches:    func(m domain.MarketContext) bool { return m.Trend == domain.TrendSideways },
				Strategies: []string{"options", "foarbitrage"},
			},
		},
	}
}

func NewClassifier(cfg Config) *Classifier {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Classifier{rules: cfg.Rules, maxConcurrent: maxConcurrent}
}

// Classify returns the eligible strategy names for the given context.
// Deterministic: identical context and config yield identical output.
func (c *Classifier) Classify(mkt domain.MarketContext) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, c.maxConcurrent)
	for _, rule := range c.rules {
		if !rule.Matches(mkt) {
			continue
		}
		for _, name := range rule.Strategies {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
			if len(out) == c.maxConcurrent {
				return out
			}
		}
	}
	return out
}
