package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/observability"
	"pricing-engine/internal/storage"
)

// RunStore writes pipeline runs and serves the joined sales view.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var (
	_ storage.RunWriter   = (*RunStore)(nil)
	_ storage.SalesReader = (*RunStore)(nil)
)

// WriteRun rebuilds daily_features and upserts predicted_prices in one transaction.
func (s *RunStore) WriteRun(ctx context.Context, rows []*domain.FeatureRow, preds []*domain.Prediction) (err error) {
	if err := storage.ValidateRun(rows, preds); err != nil {
		return err
	}
	defer observability.ObserveDBQuery("postgres", "write_run", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := lockExclusive(ctx, tx); err != nil {
		return err
	}
	if err := replaceFeatures(ctx, tx, rows); err != nil {
		return err
	}
	if err := ensurePredictionTable(ctx, tx); err != nil {
		return err
	}
	if err := upsertPredictions(ctx, tx, preds); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}

	observability.RecordRowsWritten(storage.TableDailyFeatures, len(rows))
	observability.RecordRowsWritten(storage.TablePredictedPrices, len(preds))
	return nil
}

// ReadSales left-joins daily_features with predicted_prices.
// Returns ErrEmptyResultSet when no run has been written yet.
func (s *RunStore) ReadSales(ctx context.Context) (result []*domain.SalesRow, err error) {
	defer observability.ObserveDBQuery("postgres", "read_sales", time.Now(), &err)

	query := fmt.Sprintf(`
		SELECT %s, p.predicted_price
		FROM daily_features f
		LEFT JOIN predicted_prices p ON p.product_id = f.product_id AND p.date = f.date
		ORDER BY f.product_id, f.date
	`, selectFeatureColumns("f"))

	err = withSharedLock(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var predicted *float64
			r, err := scanFeatureRow(rows, &predicted)
			if err != nil {
				return fmt.Errorf("scan sales row: %w", err)
			}
			result = append(result, &domain.SalesRow{FeatureRow: *r, PredictedPrice: predicted})
		}
		return rows.Err()
	})
	if isUndefinedTable(err) {
		return nil, fmt.Errorf("read sales: %w", storage.ErrEmptyResultSet)
	}
	if err != nil {
		return nil, classify("read sales", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("read sales: %s is empty: %w", storage.TableDailyFeatures, storage.ErrEmptyResultSet)
	}
	return result, nil
}
