package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRequest covers malformed orchestration inputs: empty
	// symbol/timeframe or an unknown explicit strategy name.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDataUnavailable means no market context could be built for the
	// requested symbol/timeframe, so no strategy ran.
	ErrDataUnavailable = errors.New("market data unavailable")
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

var SupportedTimeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

func IsSupportedTimeframe(tf string) bool {
	for _, t := range SupportedTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// MarketContext is the per-cycle snapshot of a symbol's market state.
// Fetched fresh each orchestration cycle, never persisted.
type MarketContext struct {
	Symbol        string    `json:"symbol"`
	Timeframe     string    `json:"timeframe"`
	CurrentPrice  float64   `json:"current_price"`
	Volume        float64   `json:"volume"`
	AverageVolume float64   `json:"average_volume"`
	PriceChange   float64   `json:"price_change"`
	Volatility    float64   `json:"volatility"`
	Trend         Trend     `json:"trend"`
	AsOf          time.Time `json:"as_of"`
}

// VolumeRatio is current volume relative to the rolling average.
func (m MarketContext) VolumeRatio() float64 {
	if m.AverageVolume <= 0 {
		return 0
	}
	return m.Volume / m.AverageVolume
}

type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// IndicatorSnapshot is the opaque technical view supplied by the
// indicator provider.
type IndicatorSnapshot struct {
	RSI            float64 `json:"rsi"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macd_signal"`
	MACDHistogram  float64 `json:"macd_histogram"`
	EMAFast        float64 `json:"ema_fast"`
	EMASlow        float64 `json:"ema_slow"`
	BollingerUpper float64 `json:"bollinger_upper"`
	BollingerMid   float64 `json:"bollinger_mid"`
	BollingerLower float64 `json:"bollinger_lower"`
	ATR            float64 `json:"atr"`
}

type Pattern struct {
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Direction  Direction `json:"direction"`
}

type PatternSet struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Patterns  []Pattern `json:"patterns"`
}

// Strongest returns the highest-confidence pattern, or false when empty.
func (p PatternSet) Strongest() (Pattern, bool) {
	if len(p.Patterns) == 0 {
		return Pattern{}, false
	}
	best := p.Patterns[0]
	for _, candidate := range p.Patterns[1:] {
		if candidate.Confidence > best.Confidence {
			best = candidate
		}
	}
	return best, true
}

type MLEstimate struct {
	EnsembleConfidence float64   `json:"ensemble_confidence"`
	EnsembleSignal     Direction `json:"ensemble_signal"`
	AnomalyScore       float64   `json:"anomaly_score"`
}

// Signal is one strategy's directional recommendation with trade levels.
// Immutable once produced.
type Signal struct {
	Strategy        string             `json:"strategy"`
	Symbol          string             `json:"symbol"`
	Timeframe       string             `json:"timeframe"`
	Direction       Direction          `json:"direction"`
	Strength        float64            `json:"strength"`
	Confidence      float64            `json:"confidence"`
	EntryPrice      float64            `json:"entry_price"`
	StopLoss        float64            `json:"stop_loss"`
	TakeProfit      float64            `json:"take_profit"`
	ExpectedReturn  float64            `json:"expected_return"`
	RiskRewardRatio float64            `json:"risk_reward_ratio"`
	HoldingPeriod   string             `json:"holding_period"`
	Risk            RiskLevel          `json:"risk"`
	ComponentScores map[string]float64 `json:"component_scores"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// RiskPercent is the fraction of entry price at risk to the stop.
func (s Signal) RiskPercent() float64 {
	if s.EntryPrice <= 0 {
		return 0
	}
	risk := s.EntryPrice - s.StopLoss
	if risk < 0 {
		risk = -risk
	}
	return risk / s.EntryPrice
}

type StrategySummary struct {
	Name       string    `json:"name"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// AggregatedRecommendation is the fused, ranked output of one
// orchestration cycle. Derived, never persisted.
type AggregatedRecommendation struct {
	Symbol         string            `json:"symbol"`
	Timeframe      string            `json:"timeframe"`
	Recommendation Direction         `json:"recommendation"`
	Confidence     float64           `json:"confidence"`
	AggregateRisk  RiskLevel         `json:"aggregate_risk"`
	RankedSignals  []Signal          `json:"ranked_signals"`
	Strategies     []StrategySummary `json:"strategies"`
	TopStrategy    *StrategySummary  `json:"top_strategy,omitempty"`
	ExecutionCount int               `json:"execution_count"`
	Timestamp      time.Time         `json:"timestamp"`
}

type RiskAssessment struct {
	Passed       bool      `json:"passed"`
	Reason       string    `json:"reason,omitempty"`
	RiskPerTrade float64   `json:"risk_per_trade"`
	Level        RiskLevel `json:"level"`
}

type PositionSize struct {
	Quantity      float64 `json:"quantity"`
	Notional      float64 `json:"notional"`
	CapitalAtRisk float64 `json:"capital_at_risk"`
}

type RiskControls struct {
	StopLoss         float64 `json:"stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	TrailingStopPerc float64 `json:"trailing_stop_percent"`
}

type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "pending"
	ExecutionActive  ExecutionStatus = "active"
	ExecutionClosed  ExecutionStatus = "closed"
)

// ExecutionRecord is the durable ledger entry for a signal that passed
// the risk gate.
type ExecutionRecord struct {
	ExecutionID    string          `json:"execution_id"`
	Strategy       string          `json:"strategy"`
	Signal         Signal          `json:"signal"`
	Risk           RiskAssessment  `json:"risk"`
	Position       PositionSize    `json:"position"`
	Controls       RiskControls    `json:"controls"`
	Status         ExecutionStatus `json:"status"`
	RealizedReturn *float64        `json:"realized_return,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}

type ExecutionFilter struct {
	Symbol   string
	Strategy string
	Status   ExecutionStatus
	Limit    int
}

type StrategyInfo struct {
	Name       string   `json:"name"`
	Timeframes []string `json:"timeframes"`
}
