package domain

// CategoryCodes holds the integer codes of the categorical columns.
type CategoryCodes struct {
	ProductID      int
	Brand          int
	StorageVariant int
	Category       int
}

// Derived column names.
const (
	ColPriceLag1         = "price_lag1"
	ColPriceRolling1     = "price_rolling1"
	ColPriceLag7         = "price_lag7"
	ColPriceRolling7     = "price_rolling7"
	ColFlipkartPriceLag1 = "flipkart_price_lag1"
	ColFlipkartPriceLag7 = "flipkart_price_lag7"
	ColAmazonPriceLag1   = "amazon_price_lag1"
	ColAmazonPriceLag7   = "amazon_price_lag7"
	ColMyntraPriceLag1   = "myntra_price_lag1"
	ColMyntraPriceLag7   = "myntra_price_lag7"
)

// DerivedColumns lists the lag/rolling columns in table order.
var DerivedColumns = []string{
	ColPriceLag1, ColPriceRolling1, ColPriceLag7, ColPriceRolling7,
	ColFlipkartPriceLag1, ColFlipkartPriceLag7,
	ColAmazonPriceLag1, ColAmazonPriceLag7,
	ColMyntraPriceLag1, ColMyntraPriceLag7,
}

// FeatureRow is an Observation with categorical codes and lag/rolling columns.
// Corresponds to daily_features table. Derived values are NULL when no
// history exists and the builder is configured to keep them missing.
type FeatureRow struct {
	Observation
	Codes CategoryCodes

	PriceLag1         *float64
	PriceRolling1     *float64
	PriceLag7         *float64
	PriceRolling7     *float64
	FlipkartPriceLag1 *float64
	FlipkartPriceLag7 *float64
	AmazonPriceLag1   *float64
	AmazonPriceLag7   *float64
	MyntraPriceLag1   *float64
	MyntraPriceLag7   *float64
}

// derivedSlot returns the field backing a derived column, nil if unknown.
func (r *FeatureRow) derivedSlot(name string) **float64 {
	switch name {
	case ColPriceLag1:
		return &r.PriceLag1
	case ColPriceRolling1:
		return &r.PriceRolling1
	case ColPriceLag7:
		return &r.PriceLag7
	case ColPriceRolling7:
		return &r.PriceRolling7
	case ColFlipkartPriceLag1:
		return &r.FlipkartPriceLag1
	case ColFlipkartPriceLag7:
		return &r.FlipkartPriceLag7
	case ColAmazonPriceLag1:
		return &r.AmazonPriceLag1
	case ColAmazonPriceLag7:
		return &r.AmazonPriceLag7
	case ColMyntraPriceLag1:
		return &r.MyntraPriceLag1
	case ColMyntraPriceLag7:
		return &r.MyntraPriceLag7
	}
	return nil
}

// Derived returns the value of a derived column and whether the column exists.
func (r *FeatureRow) Derived(name string) (*float64, bool) {
	slot := r.derivedSlot(name)
	if slot == nil {
		return nil, false
	}
	return *slot, true
}

// SetDerived stores a derived value. Returns false for an unknown column.
func (r *FeatureRow) SetDerived(name string, v *float64) bool {
	slot := r.derivedSlot(name)
	if slot == nil {
		return false
	}
	*slot = v
	return true
}

// Clone returns a deep copy of the row.
func (r *FeatureRow) Clone() *FeatureRow {
	c := *r
	for _, name := range DerivedColumns {
		if v, _ := r.Derived(name); v != nil {
			x := *v
			c.SetDerived(name, &x)
		}
	}
	return &c
}
