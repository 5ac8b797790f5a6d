package features

import (
	"fmt"
	"math"

	"pricing-engine/internal/domain"
)

// ModelFeatures is the feature list the price model was trained on, in order.
var ModelFeatures = []string{
	"product_id", "brand", "storage_variant", "category", "units_sold",
	"revenue", "stock", "discount", "views", "clicks", "add_to_cart",
	"purchases", "bounce_rate", "flipkart_price", "amazon_price",
	"myntra_price", "day_of_week", "month", "is_weekend",
	"price_lag1", "price_rolling1", "price_lag7", "price_rolling7",
	"flipkart_price_lag1", "flipkart_price_lag7",
	"amazon_price_lag1", "amazon_price_lag7",
	"myntra_price_lag1", "myntra_price_lag7",
}

type getter func(r *domain.FeatureRow) float64

var columnGetters = map[string]getter{
	ColProductID:      func(r *domain.FeatureRow) float64 { return float64(r.Codes.ProductID) },
	ColBrand:          func(r *domain.FeatureRow) float64 { return float64(r.Codes.Brand) },
	ColStorageVariant: func(r *domain.FeatureRow) float64 { return float64(r.Codes.StorageVariant) },
	ColCategory:       func(r *domain.FeatureRow) float64 { return float64(r.Codes.Category) },
	"units_sold":      func(r *domain.FeatureRow) float64 { return float64(r.UnitsSold) },
	"revenue":         func(r *domain.FeatureRow) float64 { return float64(r.Revenue) },
	"stock":           func(r *domain.FeatureRow) float64 { return float64(r.Stock) },
	"discount":        func(r *domain.FeatureRow) float64 { return float64(r.Discount) },
	"is_festival":     func(r *domain.FeatureRow) float64 { return boolValue(r.IsFestival) },
	"views":           func(r *domain.FeatureRow) float64 { return float64(r.Views) },
	"clicks":          func(r *domain.FeatureRow) float64 { return float64(r.Clicks) },
	"add_to_cart":     func(r *domain.FeatureRow) float64 { return float64(r.AddToCart) },
	"purchases":       func(r *domain.FeatureRow) float64 { return float64(r.Purchases) },
	"bounce_rate":     func(r *domain.FeatureRow) float64 { return r.BounceRate },
	"flipkart_price":  func(r *domain.FeatureRow) float64 { return float64(r.FlipkartPrice) },
	"amazon_price":    func(r *domain.FeatureRow) float64 { return float64(r.AmazonPrice) },
	"myntra_price":    func(r *domain.FeatureRow) float64 { return float64(r.MyntraPrice) },
	"day_of_week":     func(r *domain.FeatureRow) float64 { return float64(r.DayOfWeek) },
	"month":           func(r *domain.FeatureRow) float64 { return float64(r.Month) },
	"is_weekend":      func(r *domain.FeatureRow) float64 { return boolValue(r.IsWeekend) },
}

func init() {
	for _, name := range domain.DerivedColumns {
		name := name
		columnGetters[name] = func(r *domain.FeatureRow) float64 {
			v, _ := r.Derived(name)
			if v == nil {
				return math.NaN()
			}
			return *v
		}
	}
}

// HasColumn reports whether a feature row can supply column.
func HasColumn(column string) bool {
	_, ok := columnGetters[column]
	return ok
}

// Matrix assembles rows into a dense matrix with columns in the given order.
// Missing derived values become NaN. Any column a feature row cannot supply
// fails the whole matrix with ErrSchemaMismatch.
func Matrix(rows []*domain.FeatureRow, columns []string) ([][]float64, error) {
	getters := make([]getter, len(columns))
	for i, col := range columns {
		g, ok := columnGetters[col]
		if !ok {
			return nil, fmt.Errorf("column %q not produced by feature builder: %w", col, domain.ErrSchemaMismatch)
		}
		getters[i] = g
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(getters))
		for j, g := range getters {
			vec[j] = g(r)
		}
		out[i] = vec
	}
	return out, nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
