package reporting

import (
	"fmt"
	"sort"

	"pricing-engine/internal/domain"
)

// Thresholds from the dashboard rules.
const (
	IncreaseRatio     = 1.05
	DecreaseRatio     = 0.95
	MinUnitsIncrease  = 10.0
	HighStockMean     = 100.0
	LowSalesMean      = 5.0
	PriceDiffAbsolute = 1000.0
)

// Summarize computes the headline KPIs.
func Summarize(rows []*domain.SalesRow) Summary {
	s := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		return s
	}

	products := make(map[string]struct{})
	var units int64
	s.DateFrom, s.DateTo = rows[0].Date, rows[0].Date
	for _, r := range rows {
		products[r.ProductID] = struct{}{}
		s.TotalRevenue += int64(r.Revenue)
		s.TotalViews += int64(r.Views)
		s.TotalPurchases += int64(r.Purchases)
		units += int64(r.UnitsSold)
		if r.Date.Before(s.DateFrom) {
			s.DateFrom = r.Date
		}
		if r.Date.After(s.DateTo) {
			s.DateTo = r.Date
		}
	}
	s.Products = len(products)
	s.AvgUnitsSold = float64(units) / float64(len(rows))
	return s
}

// ConversionFunnel sums the funnel counters.
func ConversionFunnel(rows []*domain.SalesRow) Funnel {
	var f Funnel
	for _, r := range rows {
		f.Views += int64(r.Views)
		f.Clicks += int64(r.Clicks)
		f.AddToCart += int64(r.AddToCart)
		f.Purchases += int64(r.Purchases)
	}
	if f.Views > 0 {
		br := 1 - float64(f.Clicks)/float64(f.Views)
		f.BounceRate = &br
	}
	return f
}

// productStats holds per-product means.
type productStats struct {
	id         string
	rows       int
	predicted  float64
	predRows   int
	competitor float64
	units      float64
	stock      float64
}

func (p *productStats) avgPredicted() *float64 {
	if p.predRows == 0 {
		return nil
	}
	v := p.predicted / float64(p.predRows)
	return &v
}

func groupStats(rows []*domain.SalesRow) []*productStats {
	byID := make(map[string]*productStats)
	for _, r := range rows {
		p, ok := byID[r.ProductID]
		if !ok {
			p = &productStats{id: r.ProductID}
			byID[r.ProductID] = p
		}
		p.rows++
		p.competitor += float64(r.FlipkartPrice+r.AmazonPrice+r.MyntraPrice) / 3
		p.units += float64(r.UnitsSold)
		p.stock += float64(r.Stock)
		if r.PredictedPrice != nil {
			p.predicted += *r.PredictedPrice
			p.predRows++
		}
	}

	out := make([]*productStats, 0, len(byID))
	for _, p := range byID {
		n := float64(p.rows)
		p.competitor /= n
		p.units /= n
		p.stock /= n
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Recommend returns one recommendation per product, sorted by product_id.
// The boolean is false when no row carries a prediction.
func Recommend(rows []*domain.SalesRow) ([]Recommendation, bool) {
	stats := groupStats(rows)
	recs := make([]Recommendation, 0, len(stats))
	hasPredictions := false
	for _, p := range stats {
		rec := Recommendation{
			ProductID:          p.id,
			AvgPredictedPrice:  p.avgPredicted(),
			AvgCompetitorPrice: p.competitor,
			AvgUnitsSold:       p.units,
			AvgStock:           p.stock,
		}
		rec.Action = decide(rec)
		if rec.AvgPredictedPrice != nil {
			hasPredictions = true
		}
		recs = append(recs, rec)
	}
	return recs, hasPredictions
}

func decide(r Recommendation) Action {
	if r.AvgPredictedPrice == nil {
		return ActionUnavailable
	}
	pred := *r.AvgPredictedPrice
	switch {
	case pred > r.AvgCompetitorPrice*IncreaseRatio && r.AvgUnitsSold > MinUnitsIncrease:
		return ActionIncrease
	case pred < r.AvgCompetitorPrice*DecreaseRatio:
		return ActionDecrease
	default:
		return ActionMaintain
	}
}

// Alerts flags high stock, low sales and predicted prices far from the
// competitor mean. Sorted by kind, then product_id.
func Alerts(rows []*domain.SalesRow) []Alert {
	var alerts []Alert
	for _, p := range groupStats(rows) {
		if p.stock > HighStockMean {
			alerts = append(alerts, Alert{
				Kind: AlertHighStock, ProductID: p.id, Value: p.stock,
				Message: fmt.Sprintf("%s: mean stock %.1f, consider a discount", p.id, p.stock),
			})
		}
		if p.units < LowSalesMean {
			alerts = append(alerts, Alert{
				Kind: AlertLowSales, ProductID: p.id, Value: p.units,
				Message: fmt.Sprintf("%s: mean units sold %.1f, review pricing", p.id, p.units),
			})
		}
		pred := p.avgPredicted()
		if pred == nil {
			continue
		}
		switch diff := *pred - p.competitor; {
		case diff > PriceDiffAbsolute:
			alerts = append(alerts, Alert{
				Kind: AlertPriceHigh, ProductID: p.id, Value: diff,
				Message: fmt.Sprintf("%s: predicted price %.0f above competitors", p.id, diff),
			})
		case diff < -PriceDiffAbsolute:
			alerts = append(alerts, Alert{
				Kind: AlertPriceLow, ProductID: p.id, Value: diff,
				Message: fmt.Sprintf("%s: predicted price %.0f below competitors", p.id, -diff),
			})
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Kind < alerts[j].Kind })
	return alerts
}
