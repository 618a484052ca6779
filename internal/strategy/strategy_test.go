package strategy

import (
	"testing"
	"time"

	"tradedeck/internal/domain"
)

func fixedNow() time.Time { return time.Unix(1700000000, 0).UTC() }

// bullishContext is a context every long-leaning component agrees on.
func bullishContext(timeframe string) Context {
	return Context{
		Market: domain.MarketContext{
			Symbol:        "RELIANCE",
			Timeframe:     timeframe,
			CurrentPrice:  100,
			Volume:        300,
			AverageVolume: 200,
			PriceChange:   0.01,
			Volatility:    0.02,
			Trend:         domain.TrendUp,
		},
		Indicators: domain.IndicatorSnapshot{
			RSI:            65,
			MACD:           0.8,
			MACDSignal:     0.3,
			MACDHistogram:  0.5,
			EMAFast:        101,
			EMASlow:        100,
			BollingerUpper: 104,
			BollingerMid:   100,
			BollingerLower: 96,
			ATR:            2,
		},
		Patterns: domain.PatternSet{
			Symbol:    "RELIANCE",
			Timeframe: timeframe,
			Patterns:  []domain.Pattern{{Type: "bullish_engulfing", Confidence: 0.8, Direction: domain.DirectionBuy}},
		},
		Estimate: domain.MLEstimate{
			EnsembleConfidence: 0.7,
			EnsembleSignal:     domain.DirectionBuy,
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistryAt(DefaultConfigs(), fixedNow)
	if err != nil {
		t.Fatalf("unexpected registry error: %v", err)
	}
	return reg
}

func TestRegistryBuildsAllVariants(t *testing.T) {
	reg := newTestRegistry(t)

	want := []string{NameScalping, NameSwing, NameBTST, NameOptions, NameFOArbitrage}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d strategies, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected registration order %v, got %v", want, got)
		}
	}

	if _, ok := reg.Get("scalping"); !ok {
		t.Fatal("expected scalping to be registered")
	}
	if _, ok := reg.Get("martingale"); ok {
		t.Fatal("unexpected strategy registered")
	}
}

func TestRegistryInfosCopiesTimeframes(t *testing.T) {
	reg := newTestRegistry(t)

	infos := reg.Infos()
	if len(infos) != 5 {
		t.Fatalf("expected 5 infos, got %d", len(infos))
	}
	if infos[0].Name != NameScalping || len(infos[0].Timeframes) != 3 {
		t.Fatalf("unexpected scalping info: %+v", infos[0])
	}

	infos[0].Timeframes[0] = "mutated"
	if reg.Infos()[0].Timeframes[0] == "mutated" {
		t.Fatal("Infos must not expose internal slices")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	cfgs := DefaultConfigs()
	cfgs = append(cfgs, cfgs[0])
	if _, err := NewRegistry(cfgs); err == nil {
		t.Fatal("expected duplicate strategy error")
	}
}

type namedStrategy struct{ name string }

func (s *namedStrategy) Name() string         { return s.name }
func (s *namedStrategy) Timeframes() []string { return []string{"1m"} }
func (s *namedStrategy) AnalyzeOpportunity(Context) (*domain.Signal, error) {
	return nil, nil
}

func TestRegistryFromPrebuiltStrategies(t *testing.T) {
	reg, err := NewRegistryFrom(&namedStrategy{name: "alpha"}, &namedStrategy{name: "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("expected given order, got %v", got)
	}
	if _, ok := reg.Get("beta"); !ok {
		t.Fatal("expected beta to be registered")
	}

	if _, err := NewRegistryFrom(&namedStrategy{name: "alpha"}, &namedStrategy{name: "alpha"}); err == nil {
		t.Fatal("expected duplicate strategy error")
	}
	if _, err := NewRegistryFrom(&namedStrategy{}); err == nil {
		t.Fatal("expected unnamed strategy error")
	}
}

func TestMajorityDirectionTieResolvesToHold(t *testing.T) {
	votes := []domain.Direction{domain.DirectionBuy, domain.DirectionSell}
	if got := majorityDirection(votes); got != domain.DirectionHold {
		t.Fatalf("expected hold on tie, got %s", got)
	}

	votes = []domain.Direction{domain.DirectionBuy, domain.DirectionBuy, domain.DirectionSell}
	if got := majorityDirection(votes); got != domain.DirectionBuy {
		t.Fatalf("expected buy majority, got %s", got)
	}

	if got := majorityDirection(nil); got != domain.DirectionHold {
		t.Fatalf("expected hold for no votes, got %s", got)
	}
}

func TestVoteMargin(t *testing.T) {
	unanimous := []domain.Direction{domain.DirectionBuy, domain.DirectionBuy}
	if got := voteMargin(unanimous); got != 1 {
		t.Fatalf("expected margin 1, got %f", got)
	}

	contested := []domain.Direction{domain.DirectionBuy, domain.DirectionBuy, domain.DirectionSell}
	if got := voteMargin(contested); got < 0.33 || got > 0.34 {
		t.Fatalf("expected margin ~1/3, got %f", got)
	}
}

func TestCompositeUsesNeutralForMissingComponents(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	got := composite(weights, map[string]float64{"a": 1.0})
	if got != 0.75 {
		t.Fatalf("expected 0.75 with neutral fill, got %f", got)
	}
}

func TestPercentLevelsShortSide(t *testing.T) {
	lv := percentLevels(domain.DirectionSell, 100, 0.01, 0.02)
	if lv.stop != 101 || lv.target != 98 {
		t.Fatalf("unexpected short levels: %+v", lv)
	}
	if lv.riskReward != 2 {
		t.Fatalf("expected risk-reward 2, got %f", lv.riskReward)
	}
}

func TestAtrLevelsFallsBackWithoutATR(t *testing.T) {
	lv := atrLevels(domain.DirectionBuy, 100, 0, 1.5, 3)
	if lv.stop >= 100 || lv.target <= 100 {
		t.Fatalf("expected percentage fallback levels, got %+v", lv)
	}

	lv = atrLevels(domain.DirectionBuy, 100, 2, 1.5, 3)
	if lv.stop != 97 || lv.target != 106 {
		t.Fatalf("unexpected atr levels: %+v", lv)
	}
	if lv.riskReward != 2 {
		t.Fatalf("expected risk-reward 2, got %f", lv.riskReward)
	}
}
