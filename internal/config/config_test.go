package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SCAN_SYMBOLS", "")
	t.Setenv("SCAN_TIMEFRAMES", "")
	t.Setenv("SCAN_INTERVAL_SECS", "")
	t.Setenv("SWEEP_INTERVAL_SECS", "")
	t.Setenv("RISK_MIN_RRR", "")
	t.Setenv("RISK_MAX_PER_TRADE", "")
	t.Setenv("RISK_MIN_CONFIDENCE", "")
	t.Setenv("RISK_CAPITAL", "")
	t.Setenv("RISK_BUDGET_PER_TRADE", "")
	t.Setenv("MCP_TRANSPORT", "")
	t.Setenv("MCP_HTTP_ENABLED", "")
	t.Setenv("MCP_HTTP_BIND", "")
	t.Setenv("MCP_HTTP_PORT", "")
	t.Setenv("MCP_AUTH_TOKEN", "")
	t.Setenv("MCP_REQUEST_TIMEOUT_SECS", "")
	t.Setenv("MCP_RATE_LIMIT_PER_MIN", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if !reflect.DeepEqual(cfg.ScanSymbols, []string{"RELIANCE", "TCS", "INFY", "HDFCBANK"}) {
		t.Fatalf("unexpected default symbols: %+v", cfg.ScanSymbols)
	}
	if !reflect.DeepEqual(cfg.ScanTimeframes, []string{"1m", "1h", "1d"}) {
		t.Fatalf("unexpected default timeframes: %+v", cfg.ScanTimeframes)
	}
	if cfg.ScanIntervalSecs != 300 || cfg.SweepIntervalSecs != 900 {
		t.Fatalf("unexpected scan cadence defaults: %d/%d", cfg.ScanIntervalSecs, cfg.SweepIntervalSecs)
	}
	if cfg.RiskMinRRR != 1.2 || cfg.RiskMaxPerTrade != 0.05 || cfg.RiskMinConf != 0.5 {
		t.Fatalf("unexpected risk gate defaults: %+v", cfg)
	}
	if cfg.RiskCapital != 100000 || cfg.RiskBudget != 0.01 {
		t.Fatalf("unexpected sizing defaults: %+v", cfg)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected default MCP transport stdio, got %s", cfg.MCPTransport)
	}
	if cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected MCP http defaults: %s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	}
	if cfg.MCPRequestTimeoutSecs != 5 || cfg.MCPRateLimitPerMin != 60 {
		t.Fatalf("unexpected MCP defaults: timeout=%d rate=%d", cfg.MCPRequestTimeoutSecs, cfg.MCPRateLimitPerMin)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("SCAN_SYMBOLS", "reliance, tcs,reliance,")
	t.Setenv("SCAN_TIMEFRAMES", "1h,2m,1h,1d")
	t.Setenv("SCAN_INTERVAL_SECS", "120")
	t.Setenv("SWEEP_INTERVAL_SECS", "600")
	t.Setenv("RISK_MIN_RRR", "1.5")
	t.Setenv("RISK_MAX_PER_TRADE", "0.03")
	t.Setenv("RISK_MIN_CONFIDENCE", "0.6")
	t.Setenv("RISK_CAPITAL", "500000")
	t.Setenv("RISK_BUDGET_PER_TRADE", "0.02")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_HTTP_ENABLED", "true")
	t.Setenv("MCP_HTTP_BIND", "0.0.0.0")
	t.Setenv("MCP_HTTP_PORT", "9191")
	t.Setenv("MCP_AUTH_TOKEN", "secret")
	t.Setenv("MCP_REQUEST_TIMEOUT_SECS", "9")
	t.Setenv("MCP_RATE_LIMIT_PER_MIN", "75")

	cfg := Load()
	if cfg.TelegramBotToken != "token" || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ScanSymbols, []string{"RELIANCE", "TCS"}) {
		t.Fatalf("unexpected symbols: %+v", cfg.ScanSymbols)
	}
	if !reflect.DeepEqual(cfg.ScanTimeframes, []string{"1h", "1d"}) {
		t.Fatalf("unexpected timeframes: %+v", cfg.ScanTimeframes)
	}
	if cfg.ScanIntervalSecs != 120 || cfg.SweepIntervalSecs != 600 {
		t.Fatalf("unexpected scan cadence: %d/%d", cfg.ScanIntervalSecs, cfg.SweepIntervalSecs)
	}
	if cfg.RiskMinRRR != 1.5 || cfg.RiskMaxPerTrade != 0.03 || cfg.RiskMinConf != 0.6 {
		t.Fatalf("unexpected risk gate values: %+v", cfg)
	}
	if cfg.RiskCapital != 500000 || cfg.RiskBudget != 0.02 {
		t.Fatalf("unexpected sizing values: %+v", cfg)
	}
	if cfg.MCPTransport != "http" || !cfg.MCPHTTPEnabled || cfg.MCPHTTPBind != "0.0.0.0" || cfg.MCPHTTPPort != 9191 || cfg.MCPAuthToken != "secret" {
		t.Fatalf("unexpected MCP config: %+v", cfg)
	}
	if cfg.MCPRequestTimeoutSecs != 9 || cfg.MCPRateLimitPerMin != 75 {
		t.Fatalf("unexpected MCP timeout/rate: %+v", cfg)
	}

	t.Setenv("SCAN_INTERVAL_SECS", "bad")
	t.Setenv("SWEEP_INTERVAL_SECS", "bad")
	t.Setenv("SCAN_TIMEFRAMES", "2m,")
	t.Setenv("RISK_MIN_RRR", "bad")
	t.Setenv("RISK_MAX_PER_TRADE", "2")
	t.Setenv("MCP_HTTP_PORT", "bad")
	t.Setenv("MCP_REQUEST_TIMEOUT_SECS", "bad")
	t.Setenv("MCP_RATE_LIMIT_PER_MIN", "bad")
	t.Setenv("MCP_TRANSPORT", "carrier-pigeon")
	cfg = Load()
	if cfg.ScanIntervalSecs != 300 || cfg.SweepIntervalSecs != 900 {
		t.Fatalf("invalid scan cadence should fall back to defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ScanTimeframes, []string{"1m", "1h", "1d"}) {
		t.Fatalf("invalid timeframe list should fall back to defaults: %+v", cfg.ScanTimeframes)
	}
	if cfg.RiskMinRRR != 1.2 || cfg.RiskMaxPerTrade != 0.05 {
		t.Fatalf("invalid risk values should fall back to defaults: %+v", cfg)
	}
	if cfg.MCPHTTPPort != 8090 || cfg.MCPRequestTimeoutSecs != 5 || cfg.MCPRateLimitPerMin != 60 {
		t.Fatalf("invalid MCP numeric values should fall back to defaults: %+v", cfg)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("invalid MCP transport should fall back to stdio, got %s", cfg.MCPTransport)
	}
}
