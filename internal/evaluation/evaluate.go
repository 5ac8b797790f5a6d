package evaluation

import (
	"context"
	"fmt"
	"time"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/features"
	"pricing-engine/internal/scoring"
)

// DefaultCutoff splits train (before) from test (on or after).
var DefaultCutoff = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

// OverfitGap is the train-test R² difference above which a model is flagged.
const OverfitGap = 0.05

// Options configures Evaluate.
type Options struct {
	Cutoff   time.Time          // zero means DefaultCutoff
	Codebook *features.Codebook // nil derives codes from the dataset
}

// Report is the outcome of an evaluation.
type Report struct {
	Cutoff      time.Time
	TrainRows   int
	TestRows    int
	TrainR2     float64
	TestR2      float64
	Gap         float64
	MAE         float64 // on the test split
	RMSE        float64 // on the test split
	Overfitting bool
}

// Evaluate builds features with incomplete-history rows dropped, splits on
// the cutoff and scores both halves with m.
func Evaluate(ctx context.Context, ds *Dataset, m scoring.Model, opts Options) (*Report, error) {
	cutoff := opts.Cutoff
	if cutoff.IsZero() {
		cutoff = DefaultCutoff
	}
	cutoff = domain.TruncateDay(cutoff)

	builderOpts := []features.Option{features.WithDropIncomplete()}
	if opts.Codebook != nil {
		builderOpts = append(builderOpts, features.WithCodebook(opts.Codebook))
	}
	rows, err := features.NewBuilder(builderOpts...).Build(ds.Observations)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	var train, test []*domain.FeatureRow
	for _, r := range rows {
		if r.Date.Before(cutoff) {
			train = append(train, r)
		} else {
			test = append(test, r)
		}
	}
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("split at %s gives %d train and %d test rows: %w",
			cutoff.Format("2006-01-02"), len(train), len(test), domain.ErrEmptyResultSet)
	}

	trainM, err := scoreSplit(ctx, m, train, ds.Targets)
	if err != nil {
		return nil, fmt.Errorf("score train split: %w", err)
	}
	testM, err := scoreSplit(ctx, m, test, ds.Targets)
	if err != nil {
		return nil, fmt.Errorf("score test split: %w", err)
	}

	r := &Report{
		Cutoff:    cutoff,
		TrainRows: len(train),
		TestRows:  len(test),
		TrainR2:   trainM.R2,
		TestR2:    testM.R2,
		Gap:       trainM.R2 - testM.R2,
		MAE:       testM.MAE,
		RMSE:      testM.RMSE,
	}
	r.Overfitting = r.Gap > OverfitGap
	return r, nil
}

func scoreSplit(ctx context.Context, m scoring.Model, rows []*domain.FeatureRow, targets map[domain.Key]float64) (Metrics, error) {
	preds, err := scoring.Score(ctx, m, rows)
	if err != nil {
		return Metrics{}, err
	}
	actual := make([]float64, len(rows))
	predicted := make([]float64, len(rows))
	for i, r := range rows {
		actual[i] = targets[r.Key()]
		predicted[i] = preds[i].PredictedPrice
	}
	return Score(actual, predicted)
}
