// Package db owns the process-wide Postgres pool backing the candle
// store and the execution ledger.
package db

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxConns = 8

var Pool *pgxpool.Pool

// InitPostgres connects the pool. Without DATABASE_URL the process
// keeps running; the ledger and candle store just stay disabled.
func InitPostgres(ctx context.Context) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("DATABASE_URL not set, running without the execution ledger")
		return
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("invalid DATABASE_URL: %v", err)
	}
	cfg.MaxConns = poolMaxConns()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}
	Pool = pool
	log.Printf("Connected to Postgres (max %d conns)", cfg.MaxConns)
}

func poolMaxConns() int32 {
	raw := os.Getenv("DATABASE_MAX_CONNS")
	if raw == "" {
		return defaultMaxConns
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid DATABASE_MAX_CONNS %q, using %d", raw, defaultMaxConns)
		return defaultMaxConns
	}
	return int32(n)
}
