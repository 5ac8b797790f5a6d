package memory

import (
	"context"
	"sort"
	"sync"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/storage"
)

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu   sync.RWMutex
	data map[domain.Key]*domain.Prediction
}

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{
		data: make(map[domain.Key]*domain.Prediction),
	}
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// UpsertBulk inserts or overwrites predictions. Fails the entire batch on an intra-batch duplicate.
func (s *PredictionStore) UpsertBulk(_ context.Context, preds []*domain.Prediction) error {
	if err := storage.ValidatePredictions(preds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(preds)
	return nil
}

func (s *PredictionStore) upsertLocked(preds []*domain.Prediction) {
	for _, p := range preds {
		k := domain.NewKey(p.Date, p.ProductID)
		s.data[k] = &domain.Prediction{Date: k.Date, ProductID: k.ProductID, PredictedPrice: p.PredictedPrice}
	}
}

// GetAll retrieves all predictions ordered by product_id, date ASC.
func (s *PredictionStore) GetAll(_ context.Context) ([]*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*domain.Prediction) bool { return true }), nil
}

// GetByProduct retrieves a product's predictions ordered by date ASC.
func (s *PredictionStore) GetByProduct(_ context.Context, productID string) ([]*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p *domain.Prediction) bool { return p.ProductID == productID }), nil
}

// Count returns the number of rows.
func (s *PredictionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *PredictionStore) collect(keep func(*domain.Prediction) bool) []*domain.Prediction {
	var result []*domain.Prediction
	for _, p := range s.data {
		if keep(p) {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductID != result[j].ProductID {
			return result[i].ProductID < result[j].ProductID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result
}
