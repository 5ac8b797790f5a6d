package storage

import (
	"context"

	"pricing-engine/internal/domain"
)

// Table names.
const (
	TableDailyFeatures   = "daily_features"
	TablePredictedPrices = "predicted_prices"
)

// FeatureStore provides access to daily_features storage.
// The table is rebuilt on every pipeline run.
type FeatureStore interface {
	// ReplaceAll swaps the table contents for rows.
	// Returns ErrEmptyResultSet for no rows, ErrDuplicateKey for a repeated (date, product_id).
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// GetAll retrieves all rows ordered by product_id, date ASC.
	GetAll(ctx context.Context) ([]*domain.FeatureRow, error)

	// GetByProduct retrieves a product's rows ordered by date ASC.
	GetByProduct(ctx context.Context, productID string) ([]*domain.FeatureRow, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}

// PredictionStore provides access to predicted_prices storage.
// The table persists across runs; writes are upserts.
type PredictionStore interface {
	// UpsertBulk inserts or overwrites predictions by (date, product_id). Last write wins.
	UpsertBulk(ctx context.Context, preds []*domain.Prediction) error

	// GetAll retrieves all predictions ordered by product_id, date ASC.
	GetAll(ctx context.Context) ([]*domain.Prediction, error)

	// GetByProduct retrieves a product's predictions ordered by date ASC.
	GetByProduct(ctx context.Context, productID string) ([]*domain.Prediction, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}

// RunWriter persists one pipeline run's features and predictions as a single unit.
// Either both tables reflect the run or neither does.
type RunWriter interface {
	WriteRun(ctx context.Context, rows []*domain.FeatureRow, preds []*domain.Prediction) error
}

// RunArchive keeps the history of every run. Optional.
type RunArchive interface {
	Archive(ctx context.Context, runID string, rows []*domain.FeatureRow, preds []*domain.Prediction) error
}

// SalesReader returns feature rows left-joined with predictions on (product_id, date),
// ordered by product_id, date ASC.
type SalesReader interface {
	ReadSales(ctx context.Context) ([]*domain.SalesRow, error)
}
