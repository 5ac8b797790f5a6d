package evaluation

import (
	"fmt"
	"strings"
)

// RenderMarkdown formats a report for terminal or file output.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	b.WriteString("# Model Evaluation\n\n")
	fmt.Fprintf(&b, "Split at %s: %d train rows, %d test rows.\n\n", r.Cutoff.Format("2006-01-02"), r.TrainRows, r.TestRows)

	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Train R² | %.4f |\n", r.TrainR2)
	fmt.Fprintf(&b, "| Test R² | %.4f |\n", r.TestR2)
	fmt.Fprintf(&b, "| Difference (Train - Test R²) | %.4f |\n", r.Gap)
	fmt.Fprintf(&b, "| MAE | %.4f |\n", r.MAE)
	fmt.Fprintf(&b, "| RMSE | %.4f |\n", r.RMSE)
	b.WriteString("\n")

	if r.Overfitting {
		fmt.Fprintf(&b, "**Warning:** potential overfitting, train R² exceeds test R² by more than %.2f.\n", OverfitGap)
	} else {
		b.WriteString("No significant overfitting; the model generalizes to the test period.\n")
	}
	return b.String()
}
