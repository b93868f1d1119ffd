package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// likelihood bounds keep the percentage strictly inside (0, 100); the
	// floor is far below anything a two-decimal display can show
	minLikelihood = 1e-12
	maxLikelihood = math.Nextafter(100, 0)
	belowHalf     = math.Nextafter(50, 0)
)

// Score returns bias + Σ weight[j]*x[j].
func Score(params ModelParameters, x FeatureVector) (float64, error) {
	if err := x.Validate(); err != nil {
		return 0, err
	}
	return score(params, x)
}

// score expects x to be validated already. Overflow to ±Inf still orders
// correctly against the threshold; NaN does not and is rejected.
func score(params ModelParameters, x FeatureVector) (float64, error) {
	s := params.Bias + floats.Dot(params.Weights[:], x)
	if math.IsNaN(s) || math.IsNaN(params.Threshold) {
		return 0, fmt.Errorf("%w: score is not a number", ErrInvalidInput)
	}
	return s, nil
}

// Classify returns 1 when the score reaches the threshold, 0 otherwise.
// A score exactly on the threshold is labelled 1.
func Classify(params ModelParameters, x FeatureVector) (int, error) {
	score, err := Score(params, x)
	if err != nil {
		return 0, err
	}
	return label(score, params.Threshold), nil
}

// ClassifyWithLikelihood labels x and attaches a sigmoid-smoothed confidence
// centered on the threshold. The percentage is >= 50 exactly when the label is 1.
func ClassifyWithLikelihood(params ModelParameters, x FeatureVector) (PredictionResult, error) {
	s, err := Score(params, x)
	if err != nil {
		return PredictionResult{}, err
	}
	return likelihood(s, params.Threshold), nil
}

func likelihood(score, threshold float64) PredictionResult {
	y := label(score, threshold)
	pct := clip(Sigmoid(score-threshold)*100, minLikelihood, maxLikelihood)

	// rounding can land a hair-below-threshold score on 50
	if y == 0 && pct >= 50 {
		pct = belowHalf
	}
	if y == 1 && pct < 50 {
		pct = 50
	}

	return PredictionResult{Label: y, LikelihoodPercent: &pct}
}

// Explain scores x once and returns the labelled result together with the
// raw score and its per-feature breakdown.
func Explain(params ModelParameters, x FeatureVector) (Explanation, error) {
	if err := x.Validate(); err != nil {
		return Explanation{}, err
	}
	s, err := score(params, x)
	if err != nil {
		return Explanation{}, err
	}

	return Explanation{
		PredictionResult: likelihood(s, params.Threshold),
		Score:            s,
		Threshold:        params.Threshold,
		Contributions:    contributions(params, x),
	}, nil
}

// Contributions breaks the weighted sum down per feature.
func Contributions(params ModelParameters, x FeatureVector) ([]Contribution, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return contributions(params, x), nil
}

func contributions(params ModelParameters, x FeatureVector) []Contribution {
	contribs := make([]Contribution, 0, FeatureCount)
	for j, v := range x {
		contribs = append(contribs, Contribution{
			Name:         FeatureLabels[j],
			Weight:       params.Weights[j],
			Value:        v,
			Contribution: params.Weights[j] * v,
		})
	}
	return contribs
}

func label(score, threshold float64) int {
	if score >= threshold {
		return 1
	}
	return 0
}
