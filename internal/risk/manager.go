// Package risk gates signals before they reach the ledger and sizes
// the positions for the ones that pass.
package risk

import (
	"fmt"

	"tradedeck/internal/domain"
)

type Config struct {
	// MinRiskReward rejects trades whose target does not pay for the
	// stop distance.
	MinRiskReward float64
	// MaxRiskPerTrade is the largest tolerable fraction of entry price
	// between entry and stop.
	MaxRiskPerTrade float64
	// MinConfidence rejects signals the strategies themselves were not
	// sure about.
	MinConfidence float64
	// Capital and RiskBudget drive position sizing: at most
	// Capital*RiskBudget is lost if the stop fills.
	Capital    float64
	RiskBudget float64
	// TrailingStopPercent is attached to generated risk controls.
	TrailingStopPercent float64
}

func DefaultConfig() Config {
	return Config{
		MinRiskReward:       1.2,
		MaxRiskPerTrade:     0.05,
		MinConfidence:       0.5,
		Capital:             100000,
		RiskBudget:          0.01,
		TrailingStopPercent: 0.01,
	}
}

type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	if cfg.MinRiskReward <= 0 {
		cfg.MinRiskReward = DefaultConfig().MinRiskReward
	}
	if cfg.MaxRiskPerTrade <= 0 {
		cfg.MaxRiskPerTrade = DefaultConfig().MaxRiskPerTrade
	}
	return &Manager{cfg: cfg}
}

// Assess is the pre-persistence gate. It never mutates the signal.
func (m *Manager) Assess(sig domain.Signal) domain.RiskAssessment {
	assessment := domain.RiskAssessment{
		Level:        sig.Risk,
		RiskPerTrade: sig.RiskPercent(),
	}

	switch {
	case sig.EntryPrice <= 0:
		assessment.Reason = "missing entry price"
	case sig.StopLoss <= 0:
		assessment.Reason = "missing stop loss"
	case sig.Confidence < m.cfg.MinConfidence:
		assessment.Reason = fmt.Sprintf("confidence %.2f below floor %.2f", sig.Confidence, m.cfg.MinConfidence)
	case sig.RiskRewardRatio < m.cfg.MinRiskReward:
		assessment.Reason = fmt.Sprintf("risk reward %.2f below floor %.2f", sig.RiskRewardRatio, m.cfg.MinRiskReward)
	case assessment.RiskPerTrade > m.cfg.MaxRiskPerTrade:
		assessment.Reason = fmt.Sprintf("risk per trade %.3f above cap %.3f", assessment.RiskPerTrade, m.cfg.MaxRiskPerTrade)
	default:
		assessment.Passed = true
	}
	return assessment
}

// SizePosition converts the per-trade risk budget into a quantity:
// losing the full stop distance costs Capital*RiskBudget.
func (m *Manager) SizePosition(sig domain.Signal) domain.PositionSize {
	riskPerUnit := sig.EntryPrice - sig.StopLoss
	if riskPerUnit < 0 {
		riskPerUnit = -riskPerUnit
	}
	if riskPerUnit <= 0 || sig.EntryPrice <= 0 {
		return domain.PositionSize{}
	}

	capitalAtRisk := m.cfg.Capital * m.cfg.RiskBudget
	quantity := capitalAtRisk / riskPerUnit
	return domain.PositionSize{
		Quantity:      quantity,
		Notional:      quantity * sig.EntryPrice,
		CapitalAtRisk: capitalAtRisk,
	}
}

func (m *Manager) GenerateRiskControls(sig domain.Signal) domain.RiskControls {
	return domain.RiskControls{
		StopLoss:         sig.StopLoss,
		TakeProfit:       sig.TakeProfit,
		TrailingStopPerc: m.cfg.TrailingStopPercent,
	}
}
