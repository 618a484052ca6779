package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestInitRedisPlainAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", mr.Addr())
	Client = nil

	InitRedis(context.Background())
	if Client == nil {
		t.Fatal("expected a connected client")
	}
	if err := Client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	Client = nil
}

func TestInitRedisURLScheme(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	Client = nil

	InitRedis(context.Background())
	if Client == nil {
		t.Fatal("expected a connected client from a redis:// URL")
	}
	Client = nil
}

func TestInitRedisUnreachableDegrades(t *testing.T) {
	t.Setenv("REDIS_URL", "127.0.0.1:1")
	Client = nil

	// No fatal: the cache is optional and the client stays nil.
	InitRedis(context.Background())
	if Client != nil {
		t.Fatal("expected nil client when Redis is unreachable")
	}
}

func TestParseRedisAddrRejectsBadURL(t *testing.T) {
	if _, err := parseRedisAddr("http://localhost:6379"); err == nil {
		t.Fatal("expected error for a non-redis scheme")
	}
	opts, err := parseRedisAddr("localhost:6379")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %s", opts.Addr)
	}
}
