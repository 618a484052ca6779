// Package cache owns the process-wide Redis client fronting the
// market context reads.
package cache

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the client. REDIS_URL accepts either a redis://
// URL or a plain host:port. The cache is an optimization: when the
// connection fails the client stays nil and reads go to the source.
func InitRedis(ctx context.Context) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	opts, err := parseRedisAddr(addr)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL %q, running without cache: %v", addr, err)
		return
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unreachable at %s, running without cache: %v", opts.Addr, err)
		return
	}
	Client = client
	log.Printf("Connected to Redis at %s", opts.Addr)
}

func parseRedisAddr(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}
