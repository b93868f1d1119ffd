package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func sampleRows() []FeatureVector {
	return []FeatureVector{
		{6, 148, 72, 35, 0, 33.6, 0.627, 50},
		{1, 85, 66, 29, 0, 26.6, 0.351, 31},
		{8, 183, 64, 0, 0, 23.3, 0.672, 32},
		{1, 89, 66, 23, 94, 28.1, 0.167, 21},
		{0, 137, 40, 35, 168, 43.1, 2.288, 33},
		{5, 116, 74, 0, 0, 25.6, 0.201, 30},
		{3, 78, 50, 32, 88, 31, 0.248, 26},
	}
}

func TestDeriveWeights_UniformSpreads(t *testing.T) {
	stats, err := Analyze([]FeatureVector{uniform(1), uniform(3)})
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)

	for j := 0; j < FeatureCount; j++ {
		assert.Equal(t, 0.125, params.Weights[j])
	}
	assert.Equal(t, 0.5, params.Threshold)
	assert.InDelta(t, -1.5, params.Bias, 1e-12)
}

func TestDeriveWeights_SumToOne(t *testing.T) {
	stats, err := Analyze(sampleRows())
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, floats.Sum(params.Weights[:]), 1e-9)
	for j := 0; j < FeatureCount; j++ {
		assert.Greater(t, params.Weights[j], 0.0, FeatureLabels[j])
	}
}

func TestDeriveWeights_NarrowRangeWeighsMore(t *testing.T) {
	stats, err := Analyze(sampleRows())
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)

	// pedigree spans ~2.1, glucose spans 105
	assert.Greater(t, params.Weights[6], params.Weights[1])
	assert.InDelta(t, stats.Spreads[1]/stats.Spreads[6], params.Weights[6]/params.Weights[1], 1e-9)
}

func TestDeriveWeights_ZeroSpreadFeatureGetsZeroWeight(t *testing.T) {
	rows := []FeatureVector{
		{1, 100, 70, 20, 0, 30, 0.5, 40},
		{2, 120, 70, 25, 0, 31, 0.6, 41},
		{3, 140, 70, 30, 0, 32, 0.7, 42},
	}
	stats, err := Analyze(rows)
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)

	assert.Equal(t, 0.0, params.Weights[2])
	assert.Equal(t, 0.0, params.Weights[4])
	assert.InDelta(t, 1.0, floats.Sum(params.Weights[:]), 1e-9)
}

func TestDeriveWeights_AllDegenerate(t *testing.T) {
	stats, err := Analyze([]FeatureVector{uniform(4), uniform(4), uniform(4)})
	require.NoError(t, err)

	_, err = DeriveWeights(stats)
	assert.ErrorIs(t, err, ErrDegenerateFeatures)
}

func TestDeriveWeights_SingleRowIsDegenerate(t *testing.T) {
	stats, err := Analyze(sampleRows()[:1])
	require.NoError(t, err)

	_, err = DeriveWeights(stats)
	assert.ErrorIs(t, err, ErrDegenerateFeatures)
}

func TestDeriveWeights_NonFiniteStatistics(t *testing.T) {
	t.Run("overflowed range from finite rows", func(t *testing.T) {
		stats, err := Analyze([]FeatureVector{uniform(1.7e308), uniform(1.7e308), uniform(-1.7e308)})
		require.NoError(t, err)

		params, err := DeriveWeights(stats)
		assert.ErrorIs(t, err, ErrDegenerateFeatures)
		assert.Equal(t, ModelParameters{}, params)
	})

	tests := []struct {
		name   string
		mutate func(*DatasetStatistics)
	}{
		{"nan mean", func(s *DatasetStatistics) { s.Means[3] = math.NaN() }},
		{"infinite std", func(s *DatasetStatistics) { s.Stds[0] = math.Inf(1) }},
		{"infinite min", func(s *DatasetStatistics) { s.Mins[7] = math.Inf(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := Analyze(sampleRows())
			require.NoError(t, err)
			tt.mutate(&stats)

			_, err = DeriveWeights(stats)
			assert.ErrorIs(t, err, ErrDegenerateFeatures)
		})
	}
}

func TestDeriveWeights_LargeFiniteValues(t *testing.T) {
	rows := []FeatureVector{uniform(1e308), uniform(1.5e308)}
	rows[0][0], rows[1][0] = 1, 2

	stats, err := Analyze(rows)
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(params.Bias))
	assert.False(t, math.IsInf(params.Bias, 0))

	res, err := ClassifyWithLikelihood(params, rows[1])
	require.NoError(t, err)
	assert.Greater(t, *res.LikelihoodPercent, 0.0)
	assert.Less(t, *res.LikelihoodPercent, 100.0)
}

func TestDeriveWeights_ZeroCount(t *testing.T) {
	_, err := DeriveWeights(DatasetStatistics{})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDeriveWeights_MeanVectorOnThreshold(t *testing.T) {
	stats, err := Analyze(sampleRows())
	require.NoError(t, err)

	params, err := DeriveWeights(stats)
	require.NoError(t, err)

	score, err := Score(params, FeatureVector(stats.Means[:]))
	require.NoError(t, err)
	assert.InDelta(t, params.Threshold, score, 1e-9)
}
