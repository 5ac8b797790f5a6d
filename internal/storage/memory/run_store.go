package memory

import (
	"context"
	"fmt"
	"sync"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/storage"
)

// RunStore writes a run into a FeatureStore and a PredictionStore under one lock.
type RunStore struct {
	mu          sync.RWMutex // serializes runs against sales reads
	Features    *FeatureStore
	Predictions *PredictionStore
}

// NewRunStore creates a RunStore over fresh stores.
func NewRunStore() *RunStore {
	return &RunStore{
		Features:    NewFeatureStore(),
		Predictions: NewPredictionStore(),
	}
}

var (
	_ storage.RunWriter   = (*RunStore)(nil)
	_ storage.SalesReader = (*RunStore)(nil)
)

// WriteRun replaces the features and upserts the predictions. Nothing is written on error.
func (s *RunStore) WriteRun(ctx context.Context, rows []*domain.FeatureRow, preds []*domain.Prediction) error {
	if err := storage.ValidateRun(rows, preds); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Features.mu.Lock()
	defer s.Features.mu.Unlock()
	s.Predictions.mu.Lock()
	defer s.Predictions.mu.Unlock()

	s.Features.replaceLocked(rows)
	s.Predictions.upsertLocked(preds)
	return nil
}

// ReadSales left-joins the feature rows with their predictions.
func (s *RunStore) ReadSales(ctx context.Context) ([]*domain.SalesRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.Features.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", storage.TableDailyFeatures, storage.ErrEmptyResultSet)
	}
	preds, err := s.Predictions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return storage.JoinSales(rows, preds), nil
}
