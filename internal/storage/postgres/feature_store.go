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

// FeatureStore implements storage.FeatureStore using PostgreSQL.
type FeatureStore struct {
	pool *Pool
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(pool *Pool) *FeatureStore {
	return &FeatureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// ReplaceAll rebuilds daily_features from rows in one transaction.
func (s *FeatureStore) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) (err error) {
	if err := storage.ValidateFeatureRows(rows); err != nil {
		return err
	}
	defer observability.ObserveDBQuery("postgres", "replace_features", time.Now(), &err)

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

	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

// GetAll retrieves all rows ordered by product_id, date ASC.
func (s *FeatureStore) GetAll(ctx context.Context) ([]*domain.FeatureRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_features f ORDER BY f.product_id, f.date`, selectFeatureColumns("f"))
	return s.query(ctx, "get_features", query)
}

// GetByProduct retrieves a product's rows ordered by date ASC.
func (s *FeatureStore) GetByProduct(ctx context.Context, productID string) ([]*domain.FeatureRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_features f WHERE f.product_id = $1 ORDER BY f.date`, selectFeatureColumns("f"))
	return s.query(ctx, "get_features_by_product", query, productID)
}

// Count returns the number of rows. A table that was never built counts as zero.
func (s *FeatureStore) Count(ctx context.Context) (int, error) {
	var n int
	err := withSharedLock(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT count(*) FROM daily_features`).Scan(&n)
	})
	if isUndefinedTable(err) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("count features", err)
	}
	return n, nil
}

func (s *FeatureStore) query(ctx context.Context, op, query string, args ...any) (result []*domain.FeatureRow, err error) {
	defer observability.ObserveDBQuery("postgres", op, time.Now(), &err)

	err = withSharedLock(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanFeatureRow(rows)
			if err != nil {
				return fmt.Errorf("scan feature row: %w", err)
			}
			result = append(result, r)
		}
		return rows.Err()
	})
	if isUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

// replaceFeatures loads rows into a staging table and swaps it in for daily_features.
// Must run inside a transaction holding the exclusive run lock.
func replaceFeatures(ctx context.Context, tx pgx.Tx, rows []*domain.FeatureRow) error {
	stmts := []string{
		`DROP TABLE IF EXISTS ` + stagingTable,
		featureTableDDL(stagingTable),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify("create staging table", err)
		}
	}

	chunk := chunkRows(len(featureColumns))
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		args := make([]any, 0, (end-start)*len(featureColumns))
		for _, r := range rows[start:end] {
			args = append(args, featureValues(r)...)
		}
		if _, err := tx.Exec(ctx, upsertSQL(stagingTable, featureColumns, end-start), args...); err != nil {
			return classify("insert features", err)
		}
	}

	swap := []string{
		`DROP TABLE IF EXISTS daily_features`,
		`ALTER TABLE ` + stagingTable + ` RENAME TO daily_features`,
		`ALTER INDEX ` + stagingTable + `_pkey RENAME TO daily_features_pkey`,
	}
	for _, stmt := range swap {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify("swap features table", err)
		}
	}
	return nil
}

// lockExclusive takes the run lock until the transaction ends.
func lockExclusive(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, runLockKey); err != nil {
		return classify("acquire run lock", err)
	}
	return nil
}

// withSharedLock runs fn in a read-only transaction holding the shared run lock,
// so a read never lands between the drop and the rename of daily_features.
func withSharedLock(ctx context.Context, pool *Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, runLockKey); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
