package domain

import "time"

// Key identifies one product on one calendar day.
// Primary key of both daily_features and predicted_prices.
type Key struct {
	Date      time.Time
	ProductID string
}

// NewKey normalizes the date to UTC midnight.
func NewKey(date time.Time, productID string) Key {
	return Key{Date: TruncateDay(date), ProductID: productID}
}

// TruncateDay returns the UTC calendar day containing t.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Observation represents one product's raw telemetry for one day.
type Observation struct {
	Date           time.Time // UTC midnight
	ProductID      string
	Brand          string
	StorageVariant string
	Category       string

	Price      float64 // own list price; not persisted
	UnitsSold  int
	Revenue    int // Price * UnitsSold
	Stock      int
	Discount   int
	IsFestival bool

	// Funnel counters. Consumers expect views >= clicks >= add_to_cart >= purchases,
	// synthesis does not enforce it.
	Views      int
	Clicks     int
	AddToCart  int
	Purchases  int
	BounceRate float64

	FlipkartPrice int
	AmazonPrice   int
	MyntraPrice   int

	DayOfWeek int // Monday = 0
	Month     int
	IsWeekend bool
}

// Key returns the composite key of the observation.
func (o *Observation) Key() Key {
	return Key{Date: o.Date, ProductID: o.ProductID}
}

// SetCalendar fills DayOfWeek, Month and IsWeekend from Date.
func (o *Observation) SetCalendar() {
	o.DayOfWeek = Weekday(o.Date)
	o.Month = int(o.Date.Month())
	o.IsWeekend = o.DayOfWeek >= 5
}

// Weekday returns the day of week with Monday = 0 and Sunday = 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
