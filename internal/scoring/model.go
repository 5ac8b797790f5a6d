// Package scoring applies a trained price model to feature matrices.
package scoring

import (
	"context"
	"fmt"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/features"
)

// ErrModelInputMismatch is returned when the matrix columns differ from the model's inputs.
var ErrModelInputMismatch = domain.ErrModelInputMismatch

// Model predicts one price per matrix row.
type Model interface {
	// Features returns the input columns in the order the model expects them.
	Features() []string
	// Predict scores matrix, whose columns must equal Features exactly.
	Predict(columns []string, matrix [][]float64) ([]float64, error)
}

// CheckColumns verifies that columns equal expected in name, order and width.
func CheckColumns(expected, columns []string) error {
	if len(columns) != len(expected) {
		return fmt.Errorf("got %d columns, model expects %d: %w", len(columns), len(expected), ErrModelInputMismatch)
	}
	for i := range expected {
		if columns[i] != expected[i] {
			return fmt.Errorf("column %d is %q, model expects %q: %w", i, columns[i], expected[i], ErrModelInputMismatch)
		}
	}
	return nil
}

// Score builds the model matrix from rows and returns one prediction per row.
func Score(ctx context.Context, m Model, rows []*domain.FeatureRow) ([]*domain.Prediction, error) {
	if len(rows) == 0 {
		return nil, domain.ErrEmptyResultSet
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	columns := m.Features()
	matrix, err := features.Matrix(rows, columns)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w: %w", ErrModelInputMismatch, err)
	}

	values, err := m.Predict(columns, matrix)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(values) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows: %w", len(values), len(rows), ErrModelInputMismatch)
	}

	preds := make([]*domain.Prediction, len(rows))
	for i, r := range rows {
		preds[i] = &domain.Prediction{
			Date:           r.Date,
			ProductID:      r.ProductID,
			PredictedPrice: values[i],
		}
	}
	return preds, nil
}
