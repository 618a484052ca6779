package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"tradedeck/internal/aggregate"
	"tradedeck/internal/cache"
	"tradedeck/internal/config"
	"tradedeck/internal/db"
	mcpserver "tradedeck/internal/mcp"
	"tradedeck/internal/ml"
	"tradedeck/internal/provider"
	"tradedeck/internal/regime"
	"tradedeck/internal/repository"
	"tradedeck/internal/risk"
	"tradedeck/internal/service"
	"tradedeck/internal/strategy"
	"tradedeck/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultMCPHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initPostgresFunc     = db.InitPostgres
	initRedisFunc        = cache.InitRedis
	initTracerFunc       = tracing.InitTracer
	newCandleRepoFunc    = repository.NewCandleRepository
	newExecutionRepoFunc = repository.NewExecutionRepository
	newRegistryFunc      = strategy.NewRegistry
	newMCPServerFunc     = mcpserver.NewServer
	newMCPHandlerFunc    = mcpserver.NewHTTPTransportHandler
	runStdioFunc         = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	executionRepo := newExecutionRepoFunc(db.Pool, tracer)

	market := provider.NewMarketProvider(tracer, candleRepo, cache.Client)
	indicators := provider.NewIndicatorService(tracer, candleRepo)
	patterns := provider.NewPatternService(tracer, candleRepo)
	estimator := ml.NewEstimator(tracer, candleRepo)
	riskManager := risk.NewManager(risk.Config{
		MinRiskReward:       cfg.RiskMinRRR,
		MaxRiskPerTrade:     cfg.RiskMaxPerTrade,
		MinConfidence:       cfg.RiskMinConf,
		Capital:             cfg.RiskCapital,
		RiskBudget:          cfg.RiskBudget,
		TrailingStopPercent: risk.DefaultConfig().TrailingStopPercent,
	})

	registry, err := newRegistryFunc(strategy.DefaultConfigs())
	if err != nil {
		log.Fatalf("failed to build strategy registry: %v", err)
	}

	var store service.ExecutionStore
	var reader mcpserver.ExecutionReader
	if db.Pool != nil {
		store = executionRepo
		reader = executionRepo
	}

	orchestrator := service.NewOrchestrator(
		tracer,
		registry,
		regime.NewClassifier(regime.DefaultConfig()),
		market,
		indicators,
		patterns,
		estimator,
		riskManager,
		store,
		aggregate.DefaultConfig(),
	)

	mcpSrv := newMCPServerFunc(tracer, orchestrator, reader, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	transport := strings.ToLower(strings.TrimSpace(cfg.MCPTransport))
	switch transport {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			log.Fatalf("mcp http server failed: %v", err)
		}
	default:
		log.Fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	if !cfg.MCPHTTPEnabled {
		return fmt.Errorf("MCP_HTTP_ENABLED must be true when MCP_TRANSPORT=http")
	}
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
