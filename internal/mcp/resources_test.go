package mcp

import (
	"context"
	"testing"
	"time"

	"tradedeck/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestResourceSupportedTimeframes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	result, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "market://supported-timeframes"})
	if err != nil {
		t.Fatalf("read resource failed: %v", err)
	}

	var timeframes []string
	if err := decodeResourceJSON(result, &timeframes); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(timeframes) != len(domain.SupportedTimeframes) {
		t.Fatalf("expected %d timeframes, got %d", len(domain.SupportedTimeframes), len(timeframes))
	}
}

func TestResourceStrategiesList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	result, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "strategies://list"})
	if err != nil {
		t.Fatalf("read resource failed: %v", err)
	}

	var out listStrategiesOutput
	if err := decodeResourceJSON(result, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Strategies) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(out.Strategies))
	}
}

func TestResourceRecentExecutionsWithFilters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, executions := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	result, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{
		URI: "executions://recent?symbol=reliance&status=pending&limit=10",
	})
	if err != nil {
		t.Fatalf("read resource failed: %v", err)
	}

	var out listExecutionsOutput
	if err := decodeResourceJSON(result, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Executions) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(out.Executions))
	}
	if executions.lastFilter.Symbol != "RELIANCE" || executions.lastFilter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", executions.lastFilter)
	}

	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{
		URI: "executions://recent?status=void",
	}); err == nil {
		t.Fatal("expected error for invalid status")
	}
}
