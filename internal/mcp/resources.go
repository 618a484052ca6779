package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tradedeck/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, orchestrator StrategyRunner, executions ExecutionReader) {
	server.AddResource(&mcp.Resource{
		URI:         "market://supported-timeframes",
		Name:        "supported-timeframes",
		Description: "List of candle timeframes supported by the orchestrator",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.SupportedTimeframes)
	})

	server.AddResource(&mcp.Resource{
		URI:         "strategies://list",
		Name:        "strategies-list",
		Description: "Registered strategies and their supported timeframes",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if orchestrator == nil {
			return nil, fmt.Errorf("orchestrator unavailable")
		}
		return jsonResource(req.Params.URI, listStrategiesOutput{Strategies: orchestrator.GetAvailableStrategies(ctx)})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "executions://recent{?symbol,strategy,status,limit}",
		Name:        "executions-recent",
		Description: "Recent execution ledger entries with optional symbol/strategy/status/limit query params",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if executions == nil {
			return nil, fmt.Errorf("execution ledger unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "executions" || parsed.Host != "recent" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		input := listExecutionsInput{
			Symbol:   parsed.Query().Get("symbol"),
			Strategy: parsed.Query().Get("strategy"),
			Status:   parsed.Query().Get("status"),
			Limit:    defaultExecutionLimit,
		}
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			input.Limit = n
		}

		filter, err := normalizeExecutionFilter(input)
		if err != nil {
			return nil, err
		}
		list, err := executions.ListExecutions(ctx, filter)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, listExecutionsOutput{Executions: list})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
