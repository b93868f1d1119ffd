package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
)

// DefaultListLimit caps ListModels when no positive limit is given
const DefaultListLimit = 20

// Repository handles model registry operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveModel records a snapshot of model built from dataset
func (r *Repository) SaveModel(ctx context.Context, dataset string, model analysis.Model) (*ModelSnapshot, error) {
	snapshot := NewModelSnapshot(dataset, model)

	weights, err := json.Marshal(snapshot.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode weights: %w", err)
	}
	stats, err := json.Marshal(snapshot.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode statistics: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("insert_snapshot")
	if err != nil {
		return nil, err
	}

	_, err = stmt.ExecContext(ctx,
		snapshot.ID, snapshot.Dataset, snapshot.RowCount, string(weights),
		snapshot.Bias, snapshot.Threshold, string(stats), snapshot.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save model snapshot: %w", err)
	}

	return snapshot, nil
}

// LatestModel returns the most recent snapshot for dataset
func (r *Repository) LatestModel(ctx context.Context, dataset string) (*ModelSnapshot, error) {
	stmt, err := r.db.GetPreparedStatement("latest_snapshot")
	if err != nil {
		return nil, err
	}

	snapshot, err := scanSnapshot(stmt.QueryRowContext(ctx, dataset))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot for %s", analysis.ErrModelNotFound, dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model snapshot: %w", err)
	}

	return snapshot, nil
}

// ListModels returns up to limit snapshots, newest first
func (r *Repository) ListModels(ctx context.Context, limit int) ([]*ModelSnapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	stmt, err := r.db.GetPreparedStatement("list_snapshots")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list model snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*ModelSnapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*ModelSnapshot, error) {
	var (
		snapshot ModelSnapshot
		weights  string
		stats    string
	)

	err := row.Scan(
		&snapshot.ID, &snapshot.Dataset, &snapshot.RowCount, &weights,
		&snapshot.Bias, &snapshot.Threshold, &stats, &snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(weights), &snapshot.Weights); err != nil {
		return nil, fmt.Errorf("corrupt weights for %s: %w", snapshot.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &snapshot.Stats); err != nil {
		return nil, fmt.Errorf("corrupt statistics for %s: %w", snapshot.ID, err)
	}

	return &snapshot, nil
}
