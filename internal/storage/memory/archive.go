package memory

import (
	"context"
	"sync"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/storage"
)

// ArchivedRun is one run kept by Archive.
type ArchivedRun struct {
	RunID       string
	Rows        []*domain.FeatureRow
	Predictions []*domain.Prediction
}

// Archive is an in-memory implementation of storage.RunArchive.
type Archive struct {
	mu   sync.Mutex
	runs []ArchivedRun
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{}
}

var _ storage.RunArchive = (*Archive)(nil)

// Archive stores copies of a run's rows and predictions.
func (a *Archive) Archive(_ context.Context, runID string, rows []*domain.FeatureRow, preds []*domain.Prediction) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if err := storage.ValidateRun(rows, preds); err != nil {
		return err
	}

	run := ArchivedRun{RunID: runID}
	for _, r := range rows {
		run.Rows = append(run.Rows, storage.PersistedFeatureRow(r))
	}
	for _, p := range preds {
		c := *p
		run.Predictions = append(run.Predictions, &c)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, run)
	return nil
}

// Runs returns the archived runs in write order.
func (a *Archive) Runs() []ArchivedRun {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ArchivedRun(nil), a.runs...)
}
