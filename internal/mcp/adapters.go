package mcp

import (
	"context"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"
)

// StrategyRunner exposes orchestration operations to MCP clients.
type StrategyRunner interface {
	ExecuteStrategy(ctx context.Context, req service.StrategyRequest) (*domain.AggregatedRecommendation, error)
	GetAvailableStrategies(ctx context.Context) []domain.StrategyInfo
}

// ExecutionReader exposes read operations over the execution ledger.
type ExecutionReader interface {
	ListExecutions(ctx context.Context, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, error)
}
