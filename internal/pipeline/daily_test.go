package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pricing-engine/internal/catalog"
	"pricing-engine/internal/domain"
	"pricing-engine/internal/features"
	"pricing-engine/internal/storage"
	"pricing-engine/internal/storage/memory"
	"pricing-engine/internal/telemetry"
)

var fixedNow = time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)

// competitorModel predicts the mean of the three competitor prices.
type competitorModel struct {
	columns []string
	calls   int
}

func (m *competitorModel) Features() []string { return m.columns }

func (m *competitorModel) Predict(columns []string, matrix [][]float64) ([]float64, error) {
	m.calls++
	f := slices.Index(columns, "flipkart_price")
	a := slices.Index(columns, "amazon_price")
	y := slices.Index(columns, "myntra_price")
	out := make([]float64, len(matrix))
	for i, x := range matrix {
		out[i] = (x[f] + x[a] + x[y]) / 3
	}
	return out, nil
}

type failingWriter struct{ err error }

func (w failingWriter) WriteRun(context.Context, []*domain.FeatureRow, []*domain.Prediction) error {
	return w.err
}

type failingArchive struct{}

func (failingArchive) Archive(context.Context, string, []*domain.FeatureRow, []*domain.Prediction) error {
	return errors.New("clickhouse down")
}

func newDaily(t *testing.T, opts Options) *Daily {
	t.Helper()
	if opts.Products == nil {
		opts.Products = catalog.Default()
	}
	if opts.Generator == nil {
		opts.Generator = telemetry.NewGenerator(7)
	}
	if opts.Builder == nil {
		opts.Builder = features.NewBuilder()
	}
	if opts.Model == nil {
		opts.Model = &competitorModel{columns: features.ModelFeatures}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func TestDaily_Run310Rows(t *testing.T) {
	store := memory.NewRunStore()
	archive := memory.NewArchive()
	d := newDaily(t, Options{Writer: store, Archive: archive})
	ctx := context.Background()

	result, err := d.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 310, result.RowsGenerated)
	assert.Equal(t, 310, result.FeatureRows)
	assert.Equal(t, 310, result.Predictions)
	assert.True(t, result.Archived)
	assert.True(t, result.CodebookDerived)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), result.Window.Start)
	assert.Equal(t, time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC), result.Window.End())

	n, err := store.Features.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 310, n)

	// Day 1 of every product has a zero price_lag1.
	all, err := store.Features.GetAll(ctx)
	require.NoError(t, err)
	for _, r := range all {
		if r.Date.Equal(result.Window.Start) {
			require.NotNil(t, r.PriceLag1)
			assert.Equal(t, 0.0, *r.PriceLag1, "product %s", r.ProductID)
		}
	}

	runs := archive.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
}

func TestDaily_RerunIsIdempotentPerKey(t *testing.T) {
	store := memory.NewRunStore()
	d := newDaily(t, Options{Writer: store})
	ctx := context.Background()

	_, err := d.Run(ctx)
	require.NoError(t, err)
	first, _ := store.Predictions.GetAll(ctx)

	_, err = d.Run(ctx)
	require.NoError(t, err)
	second, _ := store.Predictions.GetAll(ctx)

	assert.Len(t, second, 310)
	assert.Equal(t, first, second)
}

func TestDaily_ModelInputMismatchWritesNothing(t *testing.T) {
	store := memory.NewRunStore()
	model := &competitorModel{columns: append(slices.Clone(features.ModelFeatures[:5]), "margin")}
	d := newDaily(t, Options{Writer: store, Model: model})

	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrModelInputMismatch)
	assert.Zero(t, model.calls)

	n, _ := store.Features.Count(context.Background())
	assert.Zero(t, n)
}

func TestDaily_WriteFailureIsFatal(t *testing.T) {
	archive := memory.NewArchive()
	d := newDaily(t, Options{
		Writer:  failingWriter{err: storage.ErrDataSourceUnavailable},
		Archive: archive,
	})

	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, storage.ErrDataSourceUnavailable)
	assert.Empty(t, archive.Runs())
}

func TestDaily_ArchiveFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := newDaily(t, Options{
		Writer:  memory.NewRunStore(),
		Archive: failingArchive{},
		Logger:  zap.New(core),
	})

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Archived)
	assert.Equal(t, 1, logs.FilterMessage("run archive failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("no codebook configured, categorical codes derived from this run's data").Len())
}

func TestDaily_FixedCodebook(t *testing.T) {
	products := catalog.Default()
	cols := map[string][]string{}
	for _, p := range products {
		cols[features.ColProductID] = append(cols[features.ColProductID], p.ID)
		cols[features.ColBrand] = append(cols[features.ColBrand], p.Brand)
		cols[features.ColStorageVariant] = append(cols[features.ColStorageVariant], p.StorageVariant)
		cols[features.ColCategory] = append(cols[features.ColCategory], p.Category)
	}
	builder := features.NewBuilder(features.WithCodebook(features.NewCodebook(cols)))

	d := newDaily(t, Options{Writer: memory.NewRunStore(), Builder: builder})
	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.CodebookDerived)
}

func TestDaily_CancelledContext(t *testing.T) {
	store := memory.NewRunStore()
	d := newDaily(t, Options{Writer: store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{
		Products:  catalog.Default(),
		Generator: telemetry.NewGenerator(1),
		Builder:   features.NewBuilder(),
		Model:     &competitorModel{},
	})
	assert.Error(t, err)
}
