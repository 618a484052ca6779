// Package ml produces the machine-learning estimate consumed as one
// fusion component: a momentum-logit directional probability damped by
// an isolation-forest anomaly score.
package ml

import (
	"context"
	"fmt"
	"math"

	"tradedeck/internal/domain"
	"tradedeck/internal/provider"

	goiforest "github.com/narumiruna/go-iforest/pkg/iforest"
	"go.opentelemetry.io/otel/trace"
)

const (
	minSamples     = 30
	longThreshold  = 0.55
	shortThreshold = 0.45
	anomalyCutoff  = 0.6
	anomalyDamping = 0.5

	forestTrees      = 50
	forestSampleSize = 64

	// Logit weights over the lagged-return features. Short-horizon
	// momentum dominates.
	weightRet1  = 12.0
	weightRet5  = 6.0
	weightRet20 = 2.0
)

type Estimator struct {
	tracer  trace.Tracer
	candles provider.CandleSource
}

func NewEstimator(tracer trace.Tracer, candles provider.CandleSource) *Estimator {
	return &Estimator{tracer: tracer, candles: candles}
}

// GetEstimate scores the latest bar. Too little history yields the
// neutral estimate rather than an error so fusion can proceed.
func (e *Estimator) GetEstimate(ctx context.Context, symbol, timeframe string) (*domain.MLEstimate, error) {
	ctx, span := e.tracer.Start(ctx, "ml-estimator.get-estimate")
	defer span.End()

	raw, err := e.candles.GetCandles(ctx, symbol, timeframe, 250)
	if err != nil {
		return nil, fmt.Errorf("get candles for %s %s: %w", symbol, timeframe, err)
	}
	candles := normalize(raw)

	samples := featureMatrix(candles)
	if len(samples) < minSamples {
		return &domain.MLEstimate{
			EnsembleConfidence: 0.5,
			EnsembleSignal:     domain.DirectionHold,
		}, nil
	}

	latest := samples[len(samples)-1]
	probability := sigmoid(weightRet1*latest[0] + weightRet5*latest[1] + weightRet20*latest[2])
	anomaly := anomalyScore(samples)

	confidence := math.Max(probability, 1-probability)
	if anomaly > anomalyCutoff {
		// An anomalous bar erodes trust in the momentum read.
		confidence *= 1 - anomalyDamping*(anomaly-anomalyCutoff)/(1-anomalyCutoff)
	}

	signal := domain.DirectionHold
	switch {
	case probability > longThreshold:
		signal = domain.DirectionBuy
	case probability < shortThreshold:
		signal = domain.DirectionSell
	}

	return &domain.MLEstimate{
		EnsembleConfidence: confidence,
		EnsembleSignal:     signal,
		AnomalyScore:       anomaly,
	}, nil
}

// featureMatrix builds one row per bar: lagged returns at 1, 5 and 20
// bars plus the bar's relative range.
func featureMatrix(candles []domain.Candle) [][]float64 {
	const maxLag = 20
	if len(candles) <= maxLag {
		return nil
	}
	rows := make([][]float64, 0, len(candles)-maxLag)
	for i := maxLag; i < len(candles); i++ {
		c := candles[i]
		if c.Close <= 0 {
			continue
		}
		row := []float64{
			laggedReturn(candles, i, 1),
			laggedReturn(candles, i, 5),
			laggedReturn(candles, i, 20),
			(c.High - c.Low) / c.Close,
		}
		rows = append(rows, row)
	}
	return rows
}

func laggedReturn(candles []domain.Candle, i, lag int) float64 {
	base := candles[i-lag].Close
	if base <= 0 {
		return 0
	}
	return (candles[i].Close - base) / base
}

// anomalyScore fits a small isolation forest over the feature window
// and scores its most recent row.
func anomalyScore(samples [][]float64) float64 {
	means, stds := fitNormalizer(samples)
	normalized := normalizeBatch(samples, means, stds)

	forest := goiforest.NewWithOptions(goiforest.Options{
		DetectionType: goiforest.DetectionTypeThreshold,
		Threshold:     anomalyCutoff,
		NumTrees:      forestTrees,
		SampleSize:    forestSampleSize,
	})
	forest.Fit(normalized)

	scores := forest.Score(normalized[len(normalized)-1:])
	if len(scores) == 0 {
		return 0
	}
	score := scores[0]
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func normalize(in []*domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func fitNormalizer(samples [][]float64) ([]float64, []float64) {
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)
	for j := 0; j < featureCount; j++ {
		for i := range samples {
			means[j] += samples[i][j]
		}
		means[j] /= float64(len(samples))
		for i := range samples {
			d := samples[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func normalizeBatch(samples [][]float64, means, stds []float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i := range samples {
		row := make([]float64, len(samples[i]))
		for j := range samples[i] {
			row[j] = (samples[i][j] - means[j]) / stds[j]
		}
		out[i] = row
	}
	return out
}
