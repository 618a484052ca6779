package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"tradedeck/internal/bot"
	"tradedeck/internal/config"
	"tradedeck/internal/handler"
	"tradedeck/internal/job"
	"tradedeck/internal/repository"
	"tradedeck/internal/service"
	"tradedeck/internal/strategy"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestHTTPAddrFromEnv(t *testing.T) {
	t.Setenv("PORT", "")
	if got := httpAddrFromEnv(); got != ":8080" {
		t.Fatalf("expected default :8080, got %s", got)
	}

	t.Setenv("PORT", "9090")
	if got := httpAddrFromEnv(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}

	t.Setenv("PORT", ":7070")
	if got := httpAddrFromEnv(); got != ":7070" {
		t.Fatalf("expected :7070, got %s", got)
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewCandleRepo := newCandleRepoFunc
	origNewExecutionRepo := newExecutionRepoFunc
	origNewRegistry := newRegistryFunc
	origNewScanner := newScannerFunc
	origStartScanner := startScannerFunc
	origStartTelegram := startTelegramBotFunc
	origNewHandler := newHandlerFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFn

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			ScanSymbols:       []string{"RELIANCE"},
			ScanTimeframes:    []string{"1h"},
			ScanIntervalSecs:  1,
			SweepIntervalSecs: 1,
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newCandleRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.CandleRepository {
		return nil
	}
	newExecutionRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.ExecutionRepository {
		return nil
	}
	newRegistryFunc = strategy.NewRegistry
	newScannerFunc = func(
		trace.Tracer,
		job.StrategyExecutor,
		job.PerformanceRecomputer,
		job.Notifier,
		job.SymbolUniverseProvider,
		[]string,
		time.Duration, time.Duration,
	) *job.Scanner {
		return job.NewScanner(nil, nil, nil, nil, nil, nil, time.Hour, time.Hour)
	}
	startScannerFunc = func(*job.Scanner, context.Context) {}
	startTelegramBotFunc = func(bot.StrategyRunner, bot.ExecutionLister) *bot.AlertDispatcher { return nil }
	newHandlerFunc = func(tracer trace.Tracer, orchestrator *service.Orchestrator, executions handler.ExecutionLister) *handler.Handler {
		return handler.New(tracer, orchestrator, executions)
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFn = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newCandleRepoFunc = origNewCandleRepo
		newExecutionRepoFunc = origNewExecutionRepo
		newRegistryFunc = origNewRegistry
		newScannerFunc = origNewScanner
		startScannerFunc = origStartScanner
		startTelegramBotFunc = origStartTelegram
		newHandlerFunc = origNewHandler
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFn = origShutdownHTTP
	}
}
