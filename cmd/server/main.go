package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"tradedeck/internal/aggregate"
	"tradedeck/internal/bot"
	"tradedeck/internal/cache"
	"tradedeck/internal/config"
	"tradedeck/internal/db"
	"tradedeck/internal/handler"
	"tradedeck/internal/job"
	"tradedeck/internal/ml"
	"tradedeck/internal/provider"
	"tradedeck/internal/regime"
	"tradedeck/internal/repository"
	"tradedeck/internal/risk"
	"tradedeck/internal/service"
	"tradedeck/internal/strategy"
	"tradedeck/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "tradedeck/docs"
)

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initPostgresFunc     = db.InitPostgres
	initRedisFunc        = cache.InitRedis
	initTracerFunc       = tracing.InitTracer
	newCandleRepoFunc    = repository.NewCandleRepository
	newExecutionRepoFunc = repository.NewExecutionRepository
	newRegistryFunc      = strategy.NewRegistry
	newScannerFunc       = job.NewScanner
	startScannerFunc     = func(s *job.Scanner, ctx context.Context) { go s.Start(ctx) }
	startTelegramBotFunc = bot.StartTelegramBot
	newHandlerFunc       = handler.New
	newRouterFunc        = gin.Default
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           TradeDeck API
// @version         1.0
// @description     Strategy orchestration and signal fusion service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	executionRepo := newExecutionRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run candle migrations: %v", err)
		}
		if err := executionRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run execution migrations: %v", err)
		}
	}

	// Create providers
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
	classifier := regime.NewClassifier(regime.DefaultConfig())

	// The ledger and performance sweep need a live database; without one
	// the orchestrator still serves recommendations.
	var store service.ExecutionStore
	var lister handler.ExecutionLister
	var botLister bot.ExecutionLister
	var recomputer job.PerformanceRecomputer
	if db.Pool != nil {
		store = executionRepo
		lister = executionRepo
		botLister = executionRepo
		recomputer = service.NewPerformanceService(tracer, executionRepo, market)
	}

	orchestrator := service.NewOrchestrator(
		tracer,
		registry,
		classifier,
		market,
		indicators,
		patterns,
		estimator,
		riskManager,
		store,
		aggregate.DefaultConfig(),
	)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	alerts := startTelegramBotFunc(orchestrator, botLister)
	var notifier job.Notifier
	if alerts != nil {
		notifier = alerts
	}

	// Start background scanner (stopped by ctx cancel)
	scanner := newScannerFunc(
		tracer,
		orchestrator,
		recomputer,
		notifier,
		job.NewWatchlistUniverse(cfg.ScanSymbols),
		cfg.ScanTimeframes,
		time.Duration(cfg.ScanIntervalSecs)*time.Second,
		time.Duration(cfg.SweepIntervalSecs)*time.Second,
	)
	startScannerFunc(scanner, ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, orchestrator, lister)

	r := newRouterFunc()
	r.Use(cors.Default())
	r.Use(otelgin.Middleware("tradedeck"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    httpAddrFromEnv(),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func httpAddrFromEnv() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
