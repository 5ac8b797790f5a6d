package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/observability"
	"pricing-engine/internal/storage"
)

// RunArchive implements storage.RunArchive using ClickHouse.
// feature_history keeps every run; prediction_history keeps the latest
// prediction per key after merges.
type RunArchive struct {
	conn *Conn
	now  func() time.Time
}

// NewRunArchive creates a new RunArchive.
func NewRunArchive(conn *Conn) *RunArchive {
	return &RunArchive{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.RunArchive = (*RunArchive)(nil)

// Archive appends a run's rows and predictions to the history tables.
func (a *RunArchive) Archive(ctx context.Context, runID string, rows []*domain.FeatureRow, preds []*domain.Prediction) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if err := storage.ValidateRun(rows, preds); err != nil {
		return err
	}
	defer observability.ObserveDBQuery("clickhouse", "archive_run", time.Now(), &err)

	writtenAt := a.now().UTC()
	if err := a.appendFeatures(ctx, runID, writtenAt, rows); err != nil {
		return err
	}
	return a.appendPredictions(ctx, runID, writtenAt, preds)
}

func (a *RunArchive) appendFeatures(ctx context.Context, runID string, writtenAt time.Time, rows []*domain.FeatureRow) error {
	batch, err := a.conn.PrepareBatch(ctx, `INSERT INTO feature_history`)
	if err != nil {
		return fmt.Errorf("prepare feature batch: %w", err)
	}

	for _, r := range rows {
		vals := []any{
			runID, writtenAt, domain.TruncateDay(r.Date),
			r.ProductID, r.Brand, r.StorageVariant, r.Category,
			int32(r.UnitsSold), int64(r.Revenue), int32(r.Stock), int32(r.Discount), r.IsFestival,
			int32(r.Views), int32(r.Clicks), int32(r.AddToCart), int32(r.Purchases), r.BounceRate,
			int32(r.FlipkartPrice), int32(r.AmazonPrice), int32(r.MyntraPrice),
			uint8(r.DayOfWeek), uint8(r.Month), r.IsWeekend,
		}
		for _, col := range domain.DerivedColumns {
			// Pass nil values directly for Nullable columns
			v, _ := r.Derived(col)
			vals = append(vals, v)
		}
		if err := batch.Append(vals...); err != nil {
			return fmt.Errorf("append to feature batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send feature batch: %w", err)
	}
	return nil
}

func (a *RunArchive) appendPredictions(ctx context.Context, runID string, writtenAt time.Time, preds []*domain.Prediction) error {
	batch, err := a.conn.PrepareBatch(ctx, `INSERT INTO prediction_history`)
	if err != nil {
		return fmt.Errorf("prepare prediction batch: %w", err)
	}

	for _, p := range preds {
		if err := batch.Append(runID, writtenAt, domain.TruncateDay(p.Date), p.ProductID, p.PredictedPrice); err != nil {
			return fmt.Errorf("append to prediction batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send prediction batch: %w", err)
	}
	return nil
}

// FeatureHistory retrieves one run's rows ordered by product_id, date ASC.
func (a *RunArchive) FeatureHistory(ctx context.Context, runID string) ([]*domain.FeatureRow, error) {
	query := `
		SELECT
			date, product_id, brand, storage_variant, category,
			units_sold, revenue, stock, discount, is_festival,
			views, clicks, add_to_cart, purchases, bounce_rate,
			flipkart_price, amazon_price, myntra_price,
			day_of_week, month, is_weekend,
			price_lag1, price_rolling1, price_lag7, price_rolling7,
			flipkart_price_lag1, flipkart_price_lag7,
			amazon_price_lag1, amazon_price_lag7,
			myntra_price_lag1, myntra_price_lag7
		FROM feature_history
		WHERE run_id = ?
		ORDER BY product_id, date
	`

	rows, err := a.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query feature history: %w", err)
	}
	defer rows.Close()

	return scanFeatureHistory(rows)
}

// LatestPredictions retrieves the most recently written prediction per (product_id, date).
func (a *RunArchive) LatestPredictions(ctx context.Context) ([]*domain.Prediction, error) {
	query := `
		SELECT date, product_id, predicted_price
		FROM prediction_history FINAL
		ORDER BY product_id, date
	`

	rows, err := a.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query prediction history: %w", err)
	}
	defer rows.Close()

	var preds []*domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.Date, &p.ProductID, &p.PredictedPrice); err != nil {
			return nil, fmt.Errorf("scan prediction history row: %w", err)
		}
		p.Date = p.Date.UTC()
		preds = append(preds, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction history rows: %w", err)
	}
	return preds, nil
}

// RunIDs lists archived runs, oldest first.
func (a *RunArchive) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT run_id FROM feature_history
		GROUP BY run_id
		ORDER BY min(written_at), run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query run ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanFeatureHistory scans multiple rows.
func scanFeatureHistory(rows driver.Rows) ([]*domain.FeatureRow, error) {
	var out []*domain.FeatureRow

	for rows.Next() {
		var r domain.FeatureRow
		var unitsSold, stock, discount, views, clicks, addToCart, purchases int32
		var flipkart, amazon, myntra int32
		var revenue int64
		var dayOfWeek, month uint8
		derived := make([]*float64, len(domain.DerivedColumns))

		dest := []any{
			&r.Date, &r.ProductID, &r.Brand, &r.StorageVariant, &r.Category,
			&unitsSold, &revenue, &stock, &discount, &r.IsFestival,
			&views, &clicks, &addToCart, &purchases, &r.BounceRate,
			&flipkart, &amazon, &myntra,
			&dayOfWeek, &month, &r.IsWeekend,
		}
		for i := range derived {
			dest = append(dest, &derived[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feature history row: %w", err)
		}

		r.Date = r.Date.UTC()
		r.UnitsSold, r.Revenue, r.Stock, r.Discount = int(unitsSold), int(revenue), int(stock), int(discount)
		r.Views, r.Clicks, r.AddToCart, r.Purchases = int(views), int(clicks), int(addToCart), int(purchases)
		r.FlipkartPrice, r.AmazonPrice, r.MyntraPrice = int(flipkart), int(amazon), int(myntra)
		r.DayOfWeek, r.Month = int(dayOfWeek), int(month)
		for i, col := range domain.DerivedColumns {
			r.SetDerived(col, derived[i])
		}
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature history rows: %w", err)
	}
	return out, nil
}
