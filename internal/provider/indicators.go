package provider

import (
	"context"
	"fmt"
	"math"

	"tradedeck/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	emaFastPeriod    = 9
	emaSlowPeriod    = 21
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
	atrPeriod        = 14
)

// IndicatorService computes one IndicatorSnapshot per symbol/timeframe
// from stored candles. Pure given the candle series.
type IndicatorService struct {
	tracer  trace.Tracer
	candles CandleSource
}

func NewIndicatorService(tracer trace.Tracer, candles CandleSource) *IndicatorService {
	return &IndicatorService{tracer: tracer, candles: candles}
}

func (s *IndicatorService) GetIndicatorSnapshot(ctx context.Context, symbol, timeframe string) (*domain.IndicatorSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "indicator-service.get-snapshot")
	defer span.End()

	candles, err := s.candles.GetCandles(ctx, symbol, timeframe, lookbackCandles)
	if err != nil {
		return nil, fmt.Errorf("get candles for %s %s: %w", symbol, timeframe, err)
	}
	normalized := normalizeCandles(candles)
	if len(normalized) < 2 {
		return nil, fmt.Errorf("%w: %s %s has %d candles", domain.ErrDataUnavailable, symbol, timeframe, len(normalized))
	}

	snap := Snapshot(normalized)
	return &snap, nil
}

// Snapshot derives the latest indicator values from an ordered candle
// series.
func Snapshot(candles []domain.Candle) domain.IndicatorSnapshot {
	closes := extractCloses(candles)

	var snap domain.IndicatorSnapshot

	if rsi := rsiSeries(closes, rsiPeriod); len(rsi) > 0 {
		if v := rsi[len(rsi)-1]; !math.IsNaN(v) {
			snap.RSI = v
		}
	}

	macdLine, signalLine := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	if len(macdLine) > 0 {
		snap.MACD = macdLine[len(macdLine)-1]
		snap.MACDSignal = signalLine[len(signalLine)-1]
		snap.MACDHistogram = snap.MACD - snap.MACDSignal
	}

	if fast := emaSeries(closes, emaFastPeriod); len(fast) > 0 {
		snap.EMAFast = fast[len(fast)-1]
	}
	if slow := emaSeries(closes, emaSlowPeriod); len(slow) > 0 {
		snap.EMASlow = slow[len(slow)-1]
	}

	if len(closes) >= bollingerPeriod {
		mean, std := meanStd(closes[len(closes)-bollingerPeriod:])
		snap.BollingerMid = mean
		snap.BollingerUpper = mean + bollingerStdDevs*std
		snap.BollingerLower = mean - bollingerStdDevs*std
	}

	snap.ATR = atr(candles, atrPeriod)
	return snap
}

func extractCloses(candles []domain.Candle) []float64 {
	values := make([]float64, len(candles))
	for i := range candles {
		values[i] = candles[i].Close
	}
	return values
}

func rsiSeries(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}

	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)
	return macdLine, signalLine
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// atr is the Wilder-smoothed average true range.
func atr(candles []domain.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0
	}
	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		tr := high - low
		if d := math.Abs(high - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(low - prevClose); d > tr {
			tr = d
		}
		trs = append(trs, tr)
	}
	if len(trs) < period {
		mean, _ := meanStd(trs)
		return mean
	}

	var sum float64
	for _, tr := range trs[:period] {
		sum += tr
	}
	value := sum / float64(period)
	for _, tr := range trs[period:] {
		value = (value*float64(period-1) + tr) / float64(period)
	}
	return value
}
