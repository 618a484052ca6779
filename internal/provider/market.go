// Package provider builds the per-cycle analysis inputs (market
// context, indicator snapshot, candlestick patterns) from stored
// candles, with a short-lived cache in front of the heavier reads.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"tradedeck/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	lookbackCandles = 250
	volumeWindow    = 20
	changeLookback  = 1
	trendWindow     = 20
	trendThreshold  = 0.01
	marketCacheTTL  = 30 * time.Second
)

type CandleSource interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)
}

type MarketProvider struct {
	tracer  trace.Tracer
	candles CandleSource
	redis   *redis.Client
	ttl     time.Duration
	now     func() time.Time
}

// NewMarketProvider wires the candle source and an optional redis
// client. A nil client disables caching.
func NewMarketProvider(tracer trace.Tracer, candles CandleSource, rdb *redis.Client) *MarketProvider {
	return &MarketProvider{
		tracer:  tracer,
		candles: candles,
		redis:   rdb,
		ttl:     marketCacheTTL,
		now:     time.Now,
	}
}

func (p *MarketProvider) GetMarketContext(ctx context.Context, symbol, timeframe string) (*domain.MarketContext, error) {
	ctx, span := p.tracer.Start(ctx, "market-provider.get-market-context")
	defer span.End()

	cacheKey := fmt.Sprintf("market:%s:%s", symbol, timeframe)
	if cached := p.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	candles, err := p.candles.GetCandles(ctx, symbol, timeframe, lookbackCandles)
	if err != nil {
		return nil, fmt.Errorf("get candles for %s %s: %w", symbol, timeframe, err)
	}
	normalized := normalizeCandles(candles)
	if len(normalized) < 2 {
		return nil, fmt.Errorf("%w: %s %s has %d candles", domain.ErrDataUnavailable, symbol, timeframe, len(normalized))
	}

	mkt := buildMarketContext(symbol, timeframe, normalized, p.now().UTC())
	p.toCache(ctx, cacheKey, mkt)
	return &mkt, nil
}

func buildMarketContext(symbol, timeframe string, candles []domain.Candle, asOf time.Time) domain.MarketContext {
	latest := candles[len(candles)-1]

	changeIdx := len(candles) - 1 - changeLookback
	if changeIdx < 0 {
		changeIdx = 0
	}
	var priceChange float64
	if base := candles[changeIdx].Close; base > 0 {
		priceChange = (latest.Close - base) / base
	}

	return domain.MarketContext{
		Symbol:        symbol,
		Timeframe:     timeframe,
		CurrentPrice:  latest.Close,
		Volume:        latest.Volume,
		AverageVolume: averageVolume(candles),
		PriceChange:   priceChange,
		Volatility:    returnVolatility(candles),
		Trend:         classifyTrend(candles),
		AsOf:          asOf,
	}
}

// averageVolume excludes the latest candle so the current bar's spike
// does not inflate its own baseline.
func averageVolume(candles []domain.Candle) float64 {
	end := len(candles) - 1
	start := end - volumeWindow
	if start < 0 {
		start = 0
	}
	if end <= start {
		return 0
	}
	var sum float64
	for _, c := range candles[start:end] {
		sum += c.Volume
	}
	return sum / float64(end-start)
}

func returnVolatility(candles []domain.Candle) float64 {
	start := len(candles) - volumeWindow - 1
	if start < 0 {
		start = 0
	}
	window := candles[start:]
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (window[i].Close-prev)/prev)
	}
	_, std := meanStd(returns)
	return std
}

func classifyTrend(candles []domain.Candle) domain.Trend {
	start := len(candles) - trendWindow
	if start < 0 {
		start = 0
	}
	window := candles[start:]
	var sum float64
	for _, c := range window {
		sum += c.Close
	}
	sma := sum / float64(len(window))
	if sma <= 0 {
		return domain.TrendSideways
	}

	latest := candles[len(candles)-1].Close
	drift := (latest - sma) / sma
	switch {
	case drift > trendThreshold:
		return domain.TrendUp
	case drift < -trendThreshold:
		return domain.TrendDown
	default:
		return domain.TrendSideways
	}
}

func (p *MarketProvider) fromCache(ctx context.Context, key string) *domain.MarketContext {
	if p.redis == nil {
		return nil
	}
	raw, err := p.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("market cache get %s: %v", key, err)
		}
		return nil
	}
	var mkt domain.MarketContext
	if err := json.Unmarshal(raw, &mkt); err != nil {
		log.Printf("market cache decode %s: %v", key, err)
		return nil
	}
	return &mkt
}

func (p *MarketProvider) toCache(ctx context.Context, key string, mkt domain.MarketContext) {
	if p.redis == nil {
		return
	}
	raw, err := json.Marshal(mkt)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, key, raw, p.ttl).Err(); err != nil {
		log.Printf("market cache set %s: %v", key, err)
	}
}

func normalizeCandles(in []*domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) == 1 {
		return mean, 0
	}
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
