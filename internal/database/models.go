package database

import (
	"time"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	"github.com/google/uuid"
)

// ModelSnapshot is a persisted copy of a derived model
type ModelSnapshot struct {
	ID        string                         `json:"id" db:"id"`
	Dataset   string                         `json:"dataset" db:"dataset"`
	RowCount  int                            `json:"row_count" db:"row_count"`
	Weights   [analysis.FeatureCount]float64 `json:"weights" db:"weights"`
	Bias      float64                        `json:"bias" db:"bias"`
	Threshold float64                        `json:"threshold" db:"threshold"`
	Stats     analysis.DatasetStatistics     `json:"stats" db:"stats"`
	CreatedAt time.Time                      `json:"created_at" db:"created_at"`
}

// NewModelSnapshot creates a snapshot of model with a generated ID
func NewModelSnapshot(dataset string, model analysis.Model) *ModelSnapshot {
	return &ModelSnapshot{
		ID:        uuid.New().String(),
		Dataset:   dataset,
		RowCount:  model.Stats.Count,
		Weights:   model.Params.Weights,
		Bias:      model.Params.Bias,
		Threshold: model.Params.Threshold,
		Stats:     model.Stats,
		CreatedAt: time.Now().UTC(),
	}
}

// Model rebuilds the analysis model held by the snapshot
func (s *ModelSnapshot) Model() analysis.Model {
	return analysis.Model{
		Params: analysis.ModelParameters{
			Weights:   s.Weights,
			Bias:      s.Bias,
			Threshold: s.Threshold,
		},
		Stats: s.Stats,
	}
}
