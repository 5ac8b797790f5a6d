package memory

import (
	"context"
	"sort"
	"sync"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	rows []*domain.FeatureRow // sorted by product_id, date
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{}
}

var _ storage.FeatureStore = (*FeatureStore)(nil)

// ReplaceAll swaps the table contents for rows.
func (s *FeatureStore) ReplaceAll(_ context.Context, rows []*domain.FeatureRow) error {
	if err := storage.ValidateFeatureRows(rows); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(rows)
	return nil
}

func (s *FeatureStore) replaceLocked(rows []*domain.FeatureRow) {
	next := make([]*domain.FeatureRow, len(rows))
	for i, r := range rows {
		next[i] = storage.PersistedFeatureRow(r)
	}
	sort.Slice(next, func(i, j int) bool {
		if next[i].ProductID != next[j].ProductID {
			return next[i].ProductID < next[j].ProductID
		}
		return next[i].Date.Before(next[j].Date)
	})
	s.rows = next
}

// GetAll retrieves all rows ordered by product_id, date ASC.
func (s *FeatureStore) GetAll(_ context.Context) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FeatureRow, len(s.rows))
	for i, r := range s.rows {
		result[i] = r.Clone()
	}
	return result, nil
}

// GetByProduct retrieves a product's rows ordered by date ASC.
func (s *FeatureStore) GetByProduct(_ context.Context, productID string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.rows {
		if r.ProductID == productID {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

// Count returns the number of rows.
func (s *FeatureStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}
