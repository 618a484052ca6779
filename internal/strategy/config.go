package strategy

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

const weightSumTolerance = 1e-6

// Config describes one strategy variant. Immutable after load; the
// registry rejects configs whose signal weights do not sum to 1.0.
type Config struct {
	Name          string
	Timeframes    []string
	Weights       map[string]float64
	MinConfidence float64
	StopLossPct   float64
	TakeProfitPct float64
	HoldingPeriod string
	Thresholds    map[string]float64
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("strategy config missing name")
	}
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("strategy %s: no supported timeframes", c.Name)
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("strategy %s: no signal weights", c.Name)
	}
	var sum float64
	for component, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("strategy %s: negative weight for %s", c.Name, component)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("strategy %s: signal weights sum to %.8f, want 1.0", c.Name, sum)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("strategy %s: min confidence %.2f out of range", c.Name, c.MinConfidence)
	}
	if c.StopLossPct <= 0 || c.TakeProfitPct <= 0 {
		return fmt.Errorf("strategy %s: stop/target percentages must be positive", c.Name)
	}
	return nil
}

func (c Config) supports(timeframe string) bool {
	for _, tf := range c.Timeframes {
		if tf == timeframe {
			return true
		}
	}
	return false
}

func (c Config) threshold(key string, fallback float64) float64 {
	if v, ok := c.Thresholds[key]; ok {
		return v
	}
	return fallback
}

// DefaultConfigs returns the built-in configuration for the five
// strategy variants. Env vars of the form <NAME>_MIN_CONFIDENCE
// override the per-strategy confidence floor.
func DefaultConfigs() []Config {
	cfgs := []Config{
		{
			Name:       NameScalping,
			Timeframes: []string{"1m", "5m", "15m"},
			Weights: map[string]float64{
				"momentum":  0.30,
				"volume":    0.20,
				"technical": 0.25,
				"pattern":   0.15,
				"ml":        0.10,
			},
			MinConfidence: 0.60,
			StopLossPct:   0.005,
			TakeProfitPct: 0.010,
			HoldingPeriod: "minutes",
			Thresholds: map[string]float64{
				"min_volume_ratio": 1.2,
				"max_volatility":   0.06,
			},
		},
		{
			Name:       NameSwing,
			Timeframes: []string{"1h", "4h", "1d"},
			Weights: map[string]float64{
				"trend":     0.25,
				"momentum":  0.20,
				"technical": 0.20,
				"alignment": 0.15,
				"pattern":   0.10,
				"ml":        0.10,
			},
			MinConfidence: 0.55,
			StopLossPct:   0.020,
			TakeProfitPct: 0.050,
			HoldingPeriod: "days",
			Thresholds: map[string]float64{
				"min_volume_ratio": 0.8,
				"atr_stop_mult":    1.5,
				"atr_target_mult":  3.0,
			},
		},
		{
			Name:       NameBTST,
			Timeframes: []string{"1d"},
			Weights: map[string]float64{
				"momentum":     0.25,
				"fundamentals": 0.20,
				"support":      0.25,
				"volume":       0.15,
				"ml":           0.15,
			},
			MinConfidence: 0.65,
			StopLossPct:   0.015,
			TakeProfitPct: 0.025,
			HoldingPeriod: "overnight",
			Thresholds: map[string]float64{
				"max_overnight_volatility": 0.035,
				"min_volume_ratio":         1.0,
			},
		},
		{
			Name:       NameOptions,
			Timeframes: []string{"1h", "1d"},
			Weights: map[string]float64{
				"vol_environment":  0.30,
				"greeks":           0.20,
				"directional_bias": 0.30,
				"ml":               0.20,
			},
			MinConfidence: 0.60,
			StopLossPct:   0.020,
			TakeProfitPct: 0.040,
			HoldingPeriod: "weeks",
			Thresholds: map[string]float64{
				"min_volatility": 0.008,
			},
		},
		{
			Name:       NameFOArbitrage,
			Timeframes: []string{"15m", "1h", "1d"},
			Weights: map[string]float64{
				"spread":    0.55,
				"liquidity": 0.25,
				"stability": 0.20,
			},
			MinConfidence: 0.55,
			StopLossPct:   0.008,
			TakeProfitPct: 0.012,
			HoldingPeriod: "intraday",
			Thresholds: map[string]float64{
				"min_spread_score": 0.35,
				"min_volume_ratio": 0.9,
			},
		},
	}

	for i := range cfgs {
		envKey := strings.ToUpper(cfgs[i].Name) + "_MIN_CONFIDENCE"
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 && n <= 1 {
				cfgs[i].MinConfidence = n
			}
		}
	}
	return cfgs
}
