package analysis

import "errors"

var (
	// ErrEmptyDataset is returned when statistics are requested over zero rows.
	ErrEmptyDataset = errors.New("dataset has no rows")

	// ErrDegenerateFeatures is returned when every feature has zero spread.
	ErrDegenerateFeatures = errors.New("every feature has zero spread")

	// ErrInvalidInput is returned when a feature vector is not 8 finite numbers.
	ErrInvalidInput = errors.New("invalid feature vector")

	// ErrModelNotFound is returned by ModelStore.Load for unknown names.
	ErrModelNotFound = errors.New("model not found")
)
