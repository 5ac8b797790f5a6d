package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/observability"
	"pricing-engine/internal/storage"
)

// PredictionStore implements storage.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *Pool
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(pool *Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

// UpsertBulk inserts or overwrites predictions atomically. Fails entire batch on an intra-batch duplicate.
func (s *PredictionStore) UpsertBulk(ctx context.Context, preds []*domain.Prediction) (err error) {
	if err := storage.ValidatePredictions(preds); err != nil {
		return err
	}
	defer observability.ObserveDBQuery("postgres", "upsert_predictions", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertPredictions(ctx, tx, preds); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

// GetAll retrieves all predictions ordered by product_id, date ASC.
func (s *PredictionStore) GetAll(ctx context.Context) ([]*domain.Prediction, error) {
	query := `
		SELECT date, product_id, predicted_price
		FROM predicted_prices
		ORDER BY product_id, date
	`
	return s.query(ctx, "get_predictions", query)
}

// GetByProduct retrieves a product's predictions ordered by date ASC.
func (s *PredictionStore) GetByProduct(ctx context.Context, productID string) ([]*domain.Prediction, error) {
	query := `
		SELECT date, product_id, predicted_price
		FROM predicted_prices
		WHERE product_id = $1
		ORDER BY date
	`
	return s.query(ctx, "get_predictions_by_product", query, productID)
}

// Count returns the number of rows.
func (s *PredictionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM predicted_prices`).Scan(&n); err != nil {
		return 0, classify("count predictions", err)
	}
	return n, nil
}

func (s *PredictionStore) query(ctx context.Context, op, query string, args ...any) (result []*domain.Prediction, err error) {
	defer observability.ObserveDBQuery("postgres", op, time.Now(), &err)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	result, err = scanPredictions(rows)
	if err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

// scanPredictions scans multiple rows into a slice of Prediction.
func scanPredictions(rows pgx.Rows) ([]*domain.Prediction, error) {
	var preds []*domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.Date, &p.ProductID, &p.PredictedPrice); err != nil {
			return nil, err
		}
		p.Date = p.Date.UTC()
		preds = append(preds, &p)
	}
	return preds, rows.Err()
}

// ensurePredictionTable creates predicted_prices inside tx when it is missing.
func ensurePredictionTable(ctx context.Context, tx pgx.Tx) error {
	for _, stmt := range predictionTableDDL {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify("create prediction table", err)
		}
	}
	return nil
}

// upsertPredictions writes preds with multi-row upserts inside tx.
func upsertPredictions(ctx context.Context, tx pgx.Tx, preds []*domain.Prediction) error {
	chunk := chunkRows(len(predictionColumns))
	for start := 0; start < len(preds); start += chunk {
		end := min(start+chunk, len(preds))
		args := make([]any, 0, (end-start)*len(predictionColumns))
		for _, p := range preds[start:end] {
			args = append(args, predictionValues(p)...)
		}
		if _, err := tx.Exec(ctx, upsertSQL(storage.TablePredictedPrices, predictionColumns, end-start), args...); err != nil {
			return classify("upsert predictions", err)
		}
	}
	return nil
}
