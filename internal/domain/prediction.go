package domain

import "time"

// Prediction is the scored price for one feature row.
// Corresponds to predicted_prices table.
type Prediction struct {
	Date           time.Time
	ProductID      string
	PredictedPrice float64
}

// Key returns the composite key of the prediction.
func (p *Prediction) Key() Key {
	return Key{Date: p.Date, ProductID: p.ProductID}
}

// SalesRow is a feature row left-joined with its prediction.
// PredictedPrice is nil when no prediction exists for the key.
type SalesRow struct {
	FeatureRow
	PredictedPrice *float64
}
