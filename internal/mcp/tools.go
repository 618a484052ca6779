package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, orchestrator StrategyRunner, executions ExecutionReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute_strategy",
		Description: "Run one strategy orchestration cycle and return the fused recommendation",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in executeStrategyInput) (*mcp.CallToolResult, executeStrategyOutput, error) {
		if orchestrator == nil {
			return nil, executeStrategyOutput{}, fmt.Errorf("orchestrator unavailable")
		}
		req, err := normalizeStrategyRequest(in)
		if err != nil {
			return nil, executeStrategyOutput{}, err
		}
		rec, err := orchestrator.ExecuteStrategy(ctx, req)
		if err != nil {
			return nil, executeStrategyOutput{}, err
		}
		return nil, executeStrategyOutput{Recommendation: rec}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_strategies",
		Description: "List registered strategies and their supported timeframes",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ listStrategiesInput) (*mcp.CallToolResult, listStrategiesOutput, error) {
		if orchestrator == nil {
			return nil, listStrategiesOutput{}, fmt.Errorf("orchestrator unavailable")
		}
		return nil, listStrategiesOutput{Strategies: orchestrator.GetAvailableStrategies(ctx)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_executions",
		Description: "List execution ledger entries with optional symbol/strategy/status filters",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in listExecutionsInput) (*mcp.CallToolResult, listExecutionsOutput, error) {
		if executions == nil {
			return nil, listExecutionsOutput{}, fmt.Errorf("execution ledger unavailable")
		}
		filter, err := normalizeExecutionFilter(in)
		if err != nil {
			return nil, listExecutionsOutput{}, err
		}
		result, err := executions.ListExecutions(ctx, filter)
		if err != nil {
			return nil, listExecutionsOutput{}, err
		}
		return nil, listExecutionsOutput{Executions: result}, nil
	})
}
