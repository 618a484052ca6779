package strategy

import (
	"fmt"
	"math"
	"time"

	"tradedeck/internal/domain"
)

const (
	NameScalping     = "scalping"
	NameSwing        = "swing"
	NameBTST         = "btst"
	NameOptions      = "options"
	NameFOArbitrage  = "foarbitrage"
	neutralScore     = 0.5
	conflictPenalty  = 0.8
	alignmentBoost   = 1.15
	agreementBoost   = 1.10
)

// Context carries everything a strategy may read during one evaluation.
// Strategies are stateless: same context, same output.
type Context struct {
	Market     domain.MarketContext
	Indicators domain.IndicatorSnapshot
	Patterns   domain.PatternSet
	Estimate   domain.MLEstimate
}

// Strategy turns one analysis context into at most one signal.
// An unsupported timeframe returns (nil, nil) with no side effect.
type Strategy interface {
	Name() string
	Timeframes() []string
	AnalyzeOpportunity(ctx Context) (*domain.Signal, error)
}

// Registry is the immutable strategy set built once at startup.
type Registry struct {
	names  []string
	byName map[string]Strategy
	now    func() time.Time
}

func NewRegistry(cfgs []Config) (*Registry, error) {
	return NewRegistryAt(cfgs, nil)
}

func NewRegistryAt(cfgs []Config, now func() time.Time) (*Registry, error) {
	if now == nil {
		now = time.Now
	}
	r := &Registry{byName: make(map[string]Strategy, len(cfgs)), now: now}
	for _, cfg := range cfgs {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		s, err := build(cfg, now)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate strategy %s", s.Name())
		}
		r.names = append(r.names, s.Name())
		r.byName[s.Name()] = s
	}
	return r, nil
}

// NewRegistryFrom assembles a registry from prebuilt strategies in the
// order given. Startup goes through NewRegistry; this is the seam for
// wiring custom implementations.
func NewRegistryFrom(strategies ...Strategy) (*Registry, error) {
	r := &Registry{byName: make(map[string]Strategy, len(strategies)), now: time.Now}
	for _, s := range strategies {
		if s == nil || s.Name() == "" {
			return nil, fmt.Errorf("strategy without a name")
		}
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate strategy %s", s.Name())
		}
		r.names = append(r.names, s.Name())
		r.byName[s.Name()] = s
	}
	return r, nil
}

func build(cfg Config, now func() time.Time) (Strategy, error) {
	switch cfg.Name {
	case NameScalping:
		return &Scalping{cfg: cfg, now: now}, nil
	case NameSwing:
		return &Swing{cfg: cfg, now: now}, nil
	case NameBTST:
		return &BTST{cfg: cfg, now: now}, nil
	case NameOptions:
		return &Options{cfg: cfg, now: now}, nil
	case NameFOArbitrage:
		return &FOArbitrage{cfg: cfg, now: now}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %s", cfg.Name)
	}
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Infos() []domain.StrategyInfo {
	infos := make([]domain.StrategyInfo, 0, len(r.names))
	for _, name := range r.names {
		s := r.byName[name]
		tfs := make([]string, len(s.Timeframes()))
		copy(tfs, s.Timeframes())
		infos = append(infos, domain.StrategyInfo{Name: name, Timeframes: tfs})
	}
	return infos
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// composite folds component scores through the configured weight
// vector. Components without a score count as neutral.
func composite(weights map[string]float64, scores map[string]float64) float64 {
	var sum float64
	for component, w := range weights {
		score, ok := scores[component]
		if !ok {
			score = neutralScore
		}
		sum += w * clip01(score)
	}
	return clip01(sum)
}

// majorityDirection resolves direction by vote. Ties resolve to hold.
func majorityDirection(votes []domain.Direction) domain.Direction {
	var buys, sells int
	for _, v := range votes {
		switch v {
		case domain.DirectionBuy:
			buys++
		case domain.DirectionSell:
			sells++
		}
	}
	switch {
	case buys > sells:
		return domain.DirectionBuy
	case sells > buys:
		return domain.DirectionSell
	default:
		return domain.DirectionHold
	}
}

// voteMargin reports how contested the vote was: 1 means unanimous
// among directional votes, 0 means dead even.
func voteMargin(votes []domain.Direction) float64 {
	var buys, sells int
	for _, v := range votes {
		switch v {
		case domain.DirectionBuy:
			buys++
		case domain.DirectionSell:
			sells++
		}
	}
	total := buys + sells
	if total == 0 {
		return 0
	}
	diff := buys - sells
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(total)
}

type levels struct {
	entry          float64
	stop           float64
	target         float64
	expectedReturn float64
	riskReward     float64
}

// percentLevels anchors stop and target at fixed fractions of price.
func percentLevels(direction domain.Direction, price, stopPct, targetPct float64) levels {
	l := levels{entry: price, expectedReturn: targetPct}
	if stopPct > 0 {
		l.riskReward = targetPct / stopPct
	}
	switch direction {
	case domain.DirectionSell:
		l.stop = price * (1 + stopPct)
		l.target = price * (1 - targetPct)
	default:
		l.stop = price * (1 - stopPct)
		l.target = price * (1 + targetPct)
	}
	return l
}

// atrLevels anchors stop and target at ATR multiples.
func atrLevels(direction domain.Direction, price, atr, stopMult, targetMult float64) levels {
	if atr <= 0 || price <= 0 {
		return percentLevels(direction, price, 0.02, 0.04)
	}
	stopDist := atr * stopMult
	targetDist := atr * targetMult
	l := levels{
		entry:          price,
		expectedReturn: targetDist / price,
	}
	if stopDist > 0 {
		l.riskReward = targetDist / stopDist
	}
	switch direction {
	case domain.DirectionSell:
		l.stop = price + stopDist
		l.target = price - targetDist
	default:
		l.stop = price - stopDist
		l.target = price + targetDist
	}
	return l
}

// riskFor maps strategy and timeframe to a categorical risk level,
// used downstream by the aggregator's risk rollup.
func riskFor(name, timeframe string) domain.RiskLevel {
	switch name {
	case NameScalping:
		return domain.RiskHigh
	case NameSwing:
		if timeframe == "1d" {
			return domain.RiskLow
		}
		return domain.RiskMedium
	case NameBTST:
		return domain.RiskHigh
	case NameOptions:
		return domain.RiskHigh
	case NameFOArbitrage:
		return domain.RiskLow
	}
	return domain.RiskMedium
}

func (c Context) emit(
	cfg Config,
	now func() time.Time,
	direction domain.Direction,
	compositeScore, confidence float64,
	lv levels,
	scores map[string]float64,
) *domain.Signal {
	return &domain.Signal{
		Strategy:        cfg.Name,
		Symbol:          c.Market.Symbol,
		Timeframe:       c.Market.Timeframe,
		Direction:       direction,
		Strength:        math.Round(compositeScore*100*100) / 100,
		Confidence:      confidence,
		EntryPrice:      lv.entry,
		StopLoss:        lv.stop,
		TakeProfit:      lv.target,
		ExpectedReturn:  lv.expectedReturn,
		RiskRewardRatio: lv.riskReward,
		HoldingPeriod:   cfg.HoldingPeriod,
		Risk:            riskFor(cfg.Name, c.Market.Timeframe),
		ComponentScores: scores,
		GeneratedAt:     now().UTC(),
	}
}

// Shared component scorers. Each returns a score in [0,1] and, where
// meaningful, a directional vote.

func momentumScore(ind domain.IndicatorSnapshot, mkt domain.MarketContext) (float64, domain.Direction) {
	// RSI distance from the 50 midline plus MACD histogram sign.
	rsiBias := (ind.RSI - 50) / 50
	score := clip01(0.5 + rsiBias/2)
	direction := domain.DirectionHold
	if ind.MACDHistogram > 0 && ind.RSI > 50 {
		direction = domain.DirectionBuy
	} else if ind.MACDHistogram < 0 && ind.RSI < 50 {
		direction = domain.DirectionSell
	} else if mkt.PriceChange > 0 {
		direction = domain.DirectionBuy
	} else if mkt.PriceChange < 0 {
		direction = domain.DirectionSell
	}
	if direction == domain.DirectionSell {
		score = clip01(0.5 - rsiBias/2)
	}
	return score, direction
}

func volumeScore(mkt domain.MarketContext) float64 {
	ratio := mkt.VolumeRatio()
	if ratio <= 0 {
		return 0
	}
	// 1.0x average is neutral; 2.0x and above saturates.
	return clip01(ratio / 2)
}

func technicalScore(ind domain.IndicatorSnapshot) (float64, domain.Direction) {
	var score float64
	direction := domain.DirectionHold
	if ind.EMAFast > ind.EMASlow {
		score += 0.5
		direction = domain.DirectionBuy
	} else if ind.EMAFast < ind.EMASlow {
		score += 0.5
		direction = domain.DirectionSell
	}
	width := ind.BollingerUpper - ind.BollingerLower
	if width > 0 && ind.BollingerMid > 0 {
		pos := (ind.BollingerMid - ind.BollingerLower) / width
		score += clip01(pos) * 0.5
	} else {
		score += 0.25
	}
	return clip01(score), direction
}

func patternScore(patterns domain.PatternSet) (float64, domain.Direction) {
	best, ok := patterns.Strongest()
	if !ok {
		return neutralScore, domain.DirectionHold
	}
	return clip01(best.Confidence), best.Direction
}

func mlScore(est domain.MLEstimate) (float64, domain.Direction) {
	return clip01(est.EnsembleConfidence), est.EnsembleSignal
}

func trendScore(mkt domain.MarketContext) (float64, domain.Direction) {
	change := math.Abs(mkt.PriceChange)
	strength := clip01(change / 0.05)
	switch mkt.Trend {
	case domain.TrendUp:
		return clip01(0.6 + strength*0.4), domain.DirectionBuy
	case domain.TrendDown:
		return clip01(0.6 + strength*0.4), domain.DirectionSell
	default:
		return 0.3, domain.DirectionHold
	}
}
