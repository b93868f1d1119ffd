package analysis

import (
	"errors"
	"fmt"
	"log/slog"
)

// RowSource supplies already-parsed feature vectors.
type RowSource interface {
	Rows() ([]FeatureVector, error)
}

// RowsFunc adapts a plain function to RowSource.
type RowsFunc func() ([]FeatureVector, error)

// Rows implements RowSource.
func (f RowsFunc) Rows() ([]FeatureVector, error) { return f() }

// Analyzer orchestrates ingestion -> statistics -> weights.
type Analyzer struct {
	source RowSource
}

// NewAnalyzer creates an analyzer reading from source
func NewAnalyzer(source RowSource) *Analyzer {
	return &Analyzer{source: source}
}

// BuildModel runs the full pipeline against the analyzer's source.
func (a *Analyzer) BuildModel() (Model, bool, error) {
	return BuildModel(a.source)
}

// BuildModel ingests rows from source, analyzes them and derives weights.
//
// An empty or fully degenerate dataset is an expected condition: it is
// reported as ok == false with a nil error. Ingestion failures and invalid
// rows are returned as errors.
func BuildModel(source RowSource) (Model, bool, error) {
	rows, err := source.Rows()
	if err != nil {
		return Model{}, false, fmt.Errorf("failed to read rows: %w", err)
	}

	stats, err := Analyze(rows)
	if err != nil {
		if errors.Is(err, ErrEmptyDataset) {
			slog.Debug("No model available", "reason", err)
			return Model{}, false, nil
		}
		return Model{}, false, fmt.Errorf("failed to analyze dataset: %w", err)
	}

	params, err := DeriveWeights(stats)
	if err != nil {
		if errors.Is(err, ErrDegenerateFeatures) {
			slog.Debug("No model available", "reason", err, "rows", stats.Count)
			return Model{}, false, nil
		}
		return Model{}, false, fmt.Errorf("failed to derive weights: %w", err)
	}

	return Model{Params: params, Stats: stats}, true, nil
}
