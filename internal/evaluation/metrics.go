package evaluation

import (
	"fmt"
	"math"
)

// Metrics measures predictions against actual values.
type Metrics struct {
	R2   float64
	MAE  float64
	RMSE float64
}

// Score computes R², MAE and RMSE. A constant actual series gives R² = 1
// for a perfect fit and 0 otherwise.
func Score(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("%d actual values, %d predictions", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("no values to score")
	}

	n := float64(len(actual))
	var mean float64
	for _, y := range actual {
		mean += y
	}
	mean /= n

	var ssRes, ssTot, absErr float64
	for i, y := range actual {
		d := y - predicted[i]
		ssRes += d * d
		absErr += math.Abs(d)
		ssTot += (y - mean) * (y - mean)
	}

	m := Metrics{
		MAE:  absErr / n,
		RMSE: math.Sqrt(ssRes / n),
	}
	switch {
	case ssTot != 0:
		m.R2 = 1 - ssRes/ssTot
	case ssRes == 0:
		m.R2 = 1
	}
	return m, nil
}
