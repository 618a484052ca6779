package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"tradedeck/internal/domain"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string

	ScanSymbols       []string
	ScanTimeframes    []string
	ScanIntervalSecs  int
	SweepIntervalSecs int

	RiskMinRRR      float64
	RiskMaxPerTrade float64
	RiskMinConf     float64
	RiskCapital     float64
	RiskBudget      float64

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.ScanSymbols = parseSymbols(os.Getenv("SCAN_SYMBOLS"))
	cfg.ScanTimeframes = parseTimeframes(os.Getenv("SCAN_TIMEFRAMES"))

	cfg.ScanIntervalSecs = 300
	if v := strings.TrimSpace(os.Getenv("SCAN_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScanIntervalSecs = n
		}
	}

	cfg.SweepIntervalSecs = 900
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SweepIntervalSecs = n
		}
	}

	cfg.RiskMinRRR = 1.2
	if v := strings.TrimSpace(os.Getenv("RISK_MIN_RRR")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.RiskMinRRR = n
		}
	}

	cfg.RiskMaxPerTrade = 0.05
	if v := strings.TrimSpace(os.Getenv("RISK_MAX_PER_TRADE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.RiskMaxPerTrade = n
		}
	}

	cfg.RiskMinConf = 0.5
	if v := strings.TrimSpace(os.Getenv("RISK_MIN_CONFIDENCE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.RiskMinConf = n
		}
	}

	cfg.RiskCapital = 100000
	if v := strings.TrimSpace(os.Getenv("RISK_CAPITAL")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.RiskCapital = n
		}
	}

	cfg.RiskBudget = 0.01
	if v := strings.TrimSpace(os.Getenv("RISK_BUDGET_PER_TRADE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.RiskBudget = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	cfg.MCPRateLimitPerMin = 60
	if v := strings.TrimSpace(os.Getenv("MCP_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRateLimitPerMin = n
		}
	}

	return cfg
}

func parseSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"RELIANCE", "TCS", "INFY", "HDFCBANK"}
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	if len(out) == 0 {
		return []string{"RELIANCE", "TCS", "INFY", "HDFCBANK"}
	}
	return out
}

func parseTimeframes(raw string) []string {
	fallback := []string{"1m", "1h", "1d"}
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		timeframe := strings.ToLower(strings.TrimSpace(part))
		if timeframe == "" {
			continue
		}
		if !domain.IsSupportedTimeframe(timeframe) {
			continue
		}
		if _, ok := seen[timeframe]; ok {
			continue
		}
		seen[timeframe] = struct{}{}
		out = append(out, timeframe)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
