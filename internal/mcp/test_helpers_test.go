package mcp

import (
	"context"
	"encoding/json"
	"time"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubOrchestrator struct {
	rec *domain.AggregatedRecommendation
	err error

	lastRequest service.StrategyRequest
}

func (s *stubOrchestrator) ExecuteStrategy(ctx context.Context, req service.StrategyRequest) (*domain.AggregatedRecommendation, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	out := *s.rec
	out.Symbol = req.Symbol
	out.Timeframe = req.Timeframe
	return &out, nil
}

func (s *stubOrchestrator) GetAvailableStrategies(ctx context.Context) []domain.StrategyInfo {
	return []domain.StrategyInfo{
		{Name: "scalping", Timeframes: []string{"1m", "5m"}},
		{Name: "swing", Timeframes: []string{"1h", "4h", "1d"}},
	}
}

type stubExecutionReader struct {
	records []domain.ExecutionRecord
	err     error

	lastFilter domain.ExecutionFilter
}

func (s *stubExecutionReader) ListExecutions(ctx context.Context, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.ExecutionRecord(nil), s.records...), nil
}

func testServer() (*sdkmcp.Server, *stubOrchestrator, *stubExecutionReader) {
	orchestrator := &stubOrchestrator{
		rec: &domain.AggregatedRecommendation{
			Recommendation: domain.DirectionBuy,
			Confidence:     0.8,
			AggregateRisk:  domain.RiskMedium,
			Timestamp:      time.Unix(1700000000, 0).UTC(),
		},
	}
	executions := &stubExecutionReader{
		records: []domain.ExecutionRecord{{
			ExecutionID: "exec-1",
			Strategy:    "scalping",
			Status:      domain.ExecutionPending,
			Signal: domain.Signal{
				Symbol:    "RELIANCE",
				Timeframe: "1m",
				Direction: domain.DirectionBuy,
			},
			CreatedAt: time.Unix(1700000000, 0).UTC(),
		}},
	}

	srv := NewServer(nil, orchestrator, executions, ServerConfig{RequestTimeout: time.Second})
	return srv, orchestrator, executions
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
