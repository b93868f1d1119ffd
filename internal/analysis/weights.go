package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DeriveWeights turns dataset statistics into a linear scoring rule.
//
// Each feature is weighted by the inverse of its observed spread, normalized
// so the weights sum to 1: narrow-range features count for more. A feature
// with zero spread carries no signal and gets weight 0. If every feature has
// zero spread there is nothing to normalize and ErrDegenerateFeatures is
// returned. Statistics that overflowed float64 are refused the same way.
//
// The bias places the dataset's mean vector exactly on the threshold.
func DeriveWeights(stats DatasetStatistics) (ModelParameters, error) {
	var params ModelParameters
	if stats.Count == 0 {
		return params, ErrEmptyDataset
	}

	if j, ok := nonFinite(stats); ok {
		return params, fmt.Errorf("%w: %s statistics overflow float64", ErrDegenerateFeatures, FeatureLabels[j])
	}

	var inv [FeatureCount]float64
	for j, s := range stats.Spreads {
		if s > 0 {
			inv[j] = 1 / s
		}
	}

	total := floats.Sum(inv[:])
	if total == 0 {
		return params, fmt.Errorf("%w: %d rows", ErrDegenerateFeatures, stats.Count)
	}

	for j := range inv {
		params.Weights[j] = inv[j] / total
	}

	params.Threshold = DefaultThreshold
	avgScore := floats.Dot(params.Weights[:], stats.Means[:])
	params.Bias = params.Threshold - avgScore
	if math.IsNaN(params.Bias) || math.IsInf(params.Bias, 0) {
		return ModelParameters{}, fmt.Errorf("%w: bias is not finite", ErrDegenerateFeatures)
	}

	return params, nil
}

// nonFinite returns the first feature whose statistics hold NaN or ±Inf.
func nonFinite(stats DatasetStatistics) (int, bool) {
	for j := 0; j < FeatureCount; j++ {
		col := []float64{stats.Mins[j], stats.Maxs[j], stats.Means[j], stats.Spreads[j], stats.Stds[j]}
		if floats.HasNaN(col) {
			return j, true
		}
		for _, v := range col {
			if math.IsInf(v, 0) {
				return j, true
			}
		}
	}
	return 0, false
}
