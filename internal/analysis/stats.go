package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Validate reports whether v holds exactly FeatureCount finite values.
func (v FeatureVector) Validate() error {
	if len(v) != FeatureCount {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidInput, FeatureCount, len(v))
	}
	for j, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, FeatureLabels[j])
		}
	}
	return nil
}

// Analyze computes per-feature statistics over rows in two passes.
// Standard deviation uses the population divisor. Means are always finite;
// spread and deviation of values near the float64 limits can overflow to
// +Inf, which DeriveWeights refuses.
func Analyze(rows []FeatureVector) (DatasetStatistics, error) {
	var stats DatasetStatistics

	n := len(rows)
	if n == 0 {
		return stats, ErrEmptyDataset
	}
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return stats, fmt.Errorf("row %d: %w", i, err)
		}
	}
	stats.Count = n

	copy(stats.Mins[:], rows[0])
	copy(stats.Maxs[:], rows[0])

	// running mean: a plain sum overflows long before the values do
	for i, row := range rows {
		k := float64(i + 1)
		for j, x := range row {
			stats.Means[j] += x/k - stats.Means[j]/k
			if x < stats.Mins[j] {
				stats.Mins[j] = x
			}
			if x > stats.Maxs[j] {
				stats.Maxs[j] = x
			}
		}
	}

	for j := 0; j < FeatureCount; j++ {
		stats.Spreads[j] = stats.Maxs[j] - stats.Mins[j]
	}

	// floats.Norm scales before squaring, so large deviations stay finite
	devs := make([]float64, n)
	for j := 0; j < FeatureCount; j++ {
		for i, row := range rows {
			devs[i] = row[j] - stats.Means[j]
		}
		stats.Stds[j] = floats.Norm(devs, 2) / math.Sqrt(float64(n))
	}

	return stats, nil
}
