package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders recommendations as CSV string.
func RenderCSV(recs []Recommendation) string {
	var sb strings.Builder

	sb.WriteString("product_id,avg_predicted_price,avg_competitor_price,avg_units_sold,avg_stock,recommendation\n")

	for _, r := range recs {
		pred := ""
		if r.AvgPredictedPrice != nil {
			pred = fmt.Sprintf("%.6f", *r.AvgPredictedPrice)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%.6f,%.6f,%s\n",
			r.ProductID,
			pred,
			r.AvgCompetitorPrice,
			r.AvgUnitsSold,
			r.AvgStock,
			r.Action,
		))
	}

	return sb.String()
}
