package telemetry

import (
	"time"

	"pricing-engine/internal/domain"
)

// Window is a contiguous range of calendar days.
type Window struct {
	Start time.Time // first day, UTC midnight
	Days  int
}

// DefaultWindow returns the window of days ending yesterday relative to now.
func DefaultWindow(now time.Time, days int) Window {
	end := domain.TruncateDay(now).AddDate(0, 0, -1)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), Days: days}
}

// End returns the last day of the window.
func (w Window) End() time.Time {
	return domain.TruncateDay(w.Start).AddDate(0, 0, w.Days-1)
}

// Dates lists every day in the window in ascending order.
func (w Window) Dates() []time.Time {
	if w.Days <= 0 {
		return nil
	}
	start := domain.TruncateDay(w.Start)
	dates := make([]time.Time, w.Days)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}
