package mcp

import (
	"fmt"
	"strings"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 200
)

type executeStrategyInput struct {
	Symbol    string `json:"symbol" jsonschema:"asset symbol (e.g. RELIANCE, TCS)"`
	Timeframe string `json:"timeframe" jsonschema:"candle timeframe: 1m, 5m, 15m, 1h, 4h, 1d"`
	Strategy  string `json:"strategy,omitempty" jsonschema:"optional strategy: scalping, swing, btst, options, foarbitrage"`
}

type executeStrategyOutput struct {
	Recommendation *domain.AggregatedRecommendation `json:"recommendation"`
}

type listStrategiesInput struct{}

type listStrategiesOutput struct {
	Strategies []domain.StrategyInfo `json:"strategies"`
}

type listExecutionsInput struct {
	Symbol   string `json:"symbol,omitempty" jsonschema:"optional asset symbol"`
	Strategy string `json:"strategy,omitempty" jsonschema:"optional strategy name"`
	Status   string `json:"status,omitempty" jsonschema:"optional status: pending, active, closed"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of records to return, max 200"`
}

type listExecutionsOutput struct {
	Executions []domain.ExecutionRecord `json:"executions"`
}

func normalizeStrategyRequest(in executeStrategyInput) (service.StrategyRequest, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return service.StrategyRequest{}, fmt.Errorf("symbol is required")
	}

	timeframe, err := normalizeTimeframe(in.Timeframe)
	if err != nil {
		return service.StrategyRequest{}, err
	}

	return service.StrategyRequest{
		Symbol:    symbol,
		Timeframe: timeframe,
		Strategy:  strings.ToLower(strings.TrimSpace(in.Strategy)),
	}, nil
}

func normalizeTimeframe(timeframe string) (string, error) {
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if timeframe == "" {
		return "", fmt.Errorf("timeframe is required")
	}
	if !domain.IsSupportedTimeframe(timeframe) {
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return timeframe, nil
}

func normalizeExecutionLimit(limit int) int {
	if limit <= 0 {
		return defaultExecutionLimit
	}
	if limit > maxExecutionLimit {
		return maxExecutionLimit
	}
	return limit
}

func normalizeExecutionFilter(in listExecutionsInput) (domain.ExecutionFilter, error) {
	filter := domain.ExecutionFilter{
		Symbol:   strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Strategy: strings.ToLower(strings.TrimSpace(in.Strategy)),
		Limit:    normalizeExecutionLimit(in.Limit),
	}

	if rawStatus := strings.ToLower(strings.TrimSpace(in.Status)); rawStatus != "" {
		status := domain.ExecutionStatus(rawStatus)
		switch status {
		case domain.ExecutionPending, domain.ExecutionActive, domain.ExecutionClosed:
			filter.Status = status
		default:
			return domain.ExecutionFilter{}, fmt.Errorf("unsupported status: %s", in.Status)
		}
	}

	return filter, nil
}
