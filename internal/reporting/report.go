// Package reporting derives the consumer read model from joined sales rows:
// KPI summary, price recommendations and stock/sales alerts.
package reporting

import "time"

// Action is a pricing recommendation for one product.
type Action string

const (
	ActionIncrease    Action = "Increase Price"
	ActionDecrease    Action = "Decrease Price"
	ActionMaintain    Action = "Maintain Price"
	ActionUnavailable Action = "Not Available"
)

// NoPredictionsMessage is reported when no row carries a predicted price.
const NoPredictionsMessage = "Predicted prices not available."

// Report is the full dashboard read model.
type Report struct {
	GeneratedAt time.Time

	Summary         Summary
	Funnel          Funnel
	Recommendations []Recommendation // sorted by product_id
	Alerts          []Alert          // sorted by kind, product_id

	// Message is set when recommendations cannot be computed.
	Message string
}

// Summary holds the headline KPIs over all rows.
type Summary struct {
	Rows           int
	Products       int
	DateFrom       time.Time
	DateTo         time.Time
	TotalRevenue   int64
	AvgUnitsSold   float64
	TotalViews     int64
	TotalPurchases int64
}

// Funnel holds conversion counters over all rows.
type Funnel struct {
	Views     int64
	Clicks    int64
	AddToCart int64
	Purchases int64
	// BounceRate is 1 - clicks/views, nil when there are no views.
	BounceRate *float64
}

// Recommendation compares a product's mean predicted price with the mean
// competitor price.
type Recommendation struct {
	ProductID          string
	AvgPredictedPrice  *float64 // nil when the product has no predictions
	AvgCompetitorPrice float64
	AvgUnitsSold       float64
	AvgStock           float64
	Action             Action
}

// AlertKind classifies an alert.
type AlertKind string

const (
	AlertHighStock AlertKind = "high_stock"
	AlertLowSales  AlertKind = "low_sales"
	AlertPriceHigh AlertKind = "price_above_competitors"
	AlertPriceLow  AlertKind = "price_below_competitors"
)

// Alert flags a product that needs attention.
type Alert struct {
	Kind      AlertKind
	ProductID string
	Value     float64
	Message   string
}
