package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Pricing Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	s := r.Summary
	sb.WriteString("## Sales & Demand\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", s.Rows))
	sb.WriteString(fmt.Sprintf("| Products | %d |\n", s.Products))
	if s.Rows > 0 {
		sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n", s.DateFrom.Format("2006-01-02"), s.DateTo.Format("2006-01-02")))
	}
	sb.WriteString(fmt.Sprintf("| Total Revenue | %d |\n", s.TotalRevenue))
	sb.WriteString(fmt.Sprintf("| Avg Units Sold | %.1f |\n", s.AvgUnitsSold))
	sb.WriteString(fmt.Sprintf("| Total Views | %d |\n", s.TotalViews))
	sb.WriteString(fmt.Sprintf("| Total Purchases | %d |\n", s.TotalPurchases))
	sb.WriteString("\n")

	// Funnel
	f := r.Funnel
	sb.WriteString("## Conversion Funnel\n\n")
	sb.WriteString("| Stage | Count |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Views | %d |\n", f.Views))
	sb.WriteString(fmt.Sprintf("| Clicks | %d |\n", f.Clicks))
	sb.WriteString(fmt.Sprintf("| Add to Cart | %d |\n", f.AddToCart))
	sb.WriteString(fmt.Sprintf("| Purchases | %d |\n", f.Purchases))
	if f.BounceRate != nil {
		sb.WriteString(fmt.Sprintf("\nBounce rate: %.2f%%\n", *f.BounceRate*100))
	} else {
		sb.WriteString("\nBounce rate: N/A\n")
	}
	sb.WriteString("\n")

	// Recommendations
	sb.WriteString("## Price Recommendations\n\n")
	if r.Message != "" {
		sb.WriteString(r.Message + "\n")
	} else {
		sb.WriteString("| Product | Predicted | Avg Competitor | Avg Units | Recommendation |\n")
		sb.WriteString("|---------|-----------|----------------|-----------|----------------|\n")
		for _, rec := range r.Recommendations {
			pred := "n/a"
			if rec.AvgPredictedPrice != nil {
				pred = fmt.Sprintf("%.2f", *rec.AvgPredictedPrice)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.1f | %s |\n",
				rec.ProductID, pred, rec.AvgCompetitorPrice, rec.AvgUnitsSold, rec.Action))
		}
	}
	sb.WriteString("\n")

	// Alerts
	sb.WriteString("## Alerts\n\n")
	if len(r.Alerts) == 0 {
		sb.WriteString("No alerts.\n")
	}
	for _, a := range r.Alerts {
		sb.WriteString(fmt.Sprintf("- **%s** %s\n", a.Kind, a.Message))
	}

	return sb.String()
}
