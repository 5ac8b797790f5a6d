package storage

import (
	"fmt"

	"pricing-engine/internal/domain"
)

// ValidateFeatureRows checks a features batch before it is written.
func ValidateFeatureRows(rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", TableDailyFeatures, ErrEmptyResultSet)
	}
	seen := make(map[domain.Key]struct{}, len(rows))
	for i, r := range rows {
		if r == nil || r.ProductID == "" || r.Date.IsZero() {
			return fmt.Errorf("%s row %d: %w", TableDailyFeatures, i, ErrInvalidInput)
		}
		if len(r.ProductID) > domain.MaxProductIDLength {
			return fmt.Errorf("%s row %d: product_id %q too long: %w", TableDailyFeatures, i, r.ProductID, ErrInvalidInput)
		}
		k := domain.NewKey(r.Date, r.ProductID)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%s %s %s: %w", TableDailyFeatures, r.ProductID, k.Date.Format("2006-01-02"), ErrDuplicateKey)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ValidatePredictions checks a predictions batch before it is written.
func ValidatePredictions(preds []*domain.Prediction) error {
	if len(preds) == 0 {
		return fmt.Errorf("%s: %w", TablePredictedPrices, ErrEmptyResultSet)
	}
	seen := make(map[domain.Key]struct{}, len(preds))
	for i, p := range preds {
		if p == nil || p.ProductID == "" || p.Date.IsZero() {
			return fmt.Errorf("%s row %d: %w", TablePredictedPrices, i, ErrInvalidInput)
		}
		if len(p.ProductID) > domain.MaxProductIDLength {
			return fmt.Errorf("%s row %d: product_id %q too long: %w", TablePredictedPrices, i, p.ProductID, ErrInvalidInput)
		}
		k := domain.NewKey(p.Date, p.ProductID)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%s %s %s: %w", TablePredictedPrices, p.ProductID, k.Date.Format("2006-01-02"), ErrDuplicateKey)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ValidateRun checks both batches of a run and that every prediction refers to a feature row's product.
func ValidateRun(rows []*domain.FeatureRow, preds []*domain.Prediction) error {
	if err := ValidateFeatureRows(rows); err != nil {
		return err
	}
	if err := ValidatePredictions(preds); err != nil {
		return err
	}
	products := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		products[r.ProductID] = struct{}{}
	}
	for _, p := range preds {
		if _, ok := products[p.ProductID]; !ok {
			return fmt.Errorf("prediction for %s has no feature rows: %w", p.ProductID, ErrInvalidInput)
		}
	}
	return nil
}

// JoinSales left-joins rows with preds on (product_id, date). Output keeps the order of rows.
func JoinSales(rows []*domain.FeatureRow, preds []*domain.Prediction) []*domain.SalesRow {
	byKey := make(map[domain.Key]float64, len(preds))
	for _, p := range preds {
		byKey[domain.NewKey(p.Date, p.ProductID)] = p.PredictedPrice
	}
	out := make([]*domain.SalesRow, len(rows))
	for i, r := range rows {
		s := &domain.SalesRow{FeatureRow: *r.Clone()}
		if v, ok := byKey[domain.NewKey(r.Date, r.ProductID)]; ok {
			s.PredictedPrice = &v
		}
		out[i] = s
	}
	return out
}

// PersistedFeatureRow returns the part of r stored in daily_features:
// categorical codes and the own list price are not persisted.
func PersistedFeatureRow(r *domain.FeatureRow) *domain.FeatureRow {
	c := r.Clone()
	c.Date = domain.TruncateDay(c.Date)
	c.Codes = domain.CategoryCodes{}
	c.Price = 0
	return c
}
