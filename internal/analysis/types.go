package analysis

// FeatureCount is the fixed width of every feature vector.
const FeatureCount = 8

// DefaultThreshold separates the two labels.
const DefaultThreshold = 0.5

// FeatureLabels names each feature slot, index-aligned with FeatureVector.
var FeatureLabels = [FeatureCount]string{
	"Pregnancies",
	"Glucose",
	"BloodPressure",
	"SkinThickness",
	"Insulin",
	"BMI",
	"DiabetesPedigreeFunction",
	"Age",
}

// FeatureVector is one sample, ordered as FeatureLabels.
type FeatureVector []float64

// DatasetStatistics holds per-feature descriptive statistics of a dataset.
type DatasetStatistics struct {
	Count   int                   `json:"count"`
	Mins    [FeatureCount]float64 `json:"mins"`
	Maxs    [FeatureCount]float64 `json:"maxs"`
	Means   [FeatureCount]float64 `json:"means"`
	Spreads [FeatureCount]float64 `json:"spreads"`
	Stds    [FeatureCount]float64 `json:"stds"`
}

// ModelParameters is the derived linear scoring rule.
type ModelParameters struct {
	Weights   [FeatureCount]float64 `json:"weights"`
	Bias      float64               `json:"bias"`
	Threshold float64               `json:"threshold"`
}

// PredictionResult is the outcome of one scoring call.
type PredictionResult struct {
	Label             int      `json:"label"`
	LikelihoodPercent *float64 `json:"likelihood_percent,omitempty"`
}

// Contribution is the share of the score attributed to a single feature.
type Contribution struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Explanation is a prediction with the score it was derived from.
type Explanation struct {
	PredictionResult
	Score         float64        `json:"score"`
	Threshold     float64        `json:"threshold"`
	Contributions []Contribution `json:"contributions"`
}

// Model bundles the parameters with the statistics they were derived from.
type Model struct {
	Params ModelParameters   `json:"params"`
	Stats  DatasetStatistics `json:"stats"`
}
