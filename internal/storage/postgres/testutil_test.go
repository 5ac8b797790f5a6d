package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"pricing-engine/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	pool, cleanup := setupEmptyDB(t)
	runMigrations(t, context.Background(), pool)
	return pool, cleanup
}

// setupEmptyDB creates a PostgreSQL container with no tables.
func setupEmptyDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the SQL files under internal/storage/migrations/postgres.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	migrationsDir := filepath.Join("..", "migrations", "postgres")
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	// Sort files by name (001_, 002_, etc.)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", file)

		t.Logf("Applied migration: %s", file)
	}
}

var day0 = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

// testRows returns products × days persisted-shape feature rows.
// Day 0 of every product has zero-filled lags.
func testRows(products, days int) []*domain.FeatureRow {
	var rows []*domain.FeatureRow
	for p := 0; p < products; p++ {
		id := "M1" + string(rune('0'+p/10)) + string(rune('0'+p%10))
		for d := 0; d < days; d++ {
			r := &domain.FeatureRow{
				Observation: domain.Observation{
					Date: day0.AddDate(0, 0, d), ProductID: id,
					Brand: "Samsung", StorageVariant: "256GB", Category: "Mobile",
					UnitsSold: d + 1, Revenue: (d + 1) * 20000, Stock: 50 + d, Discount: d % 10,
					IsFestival: d%2 == 0, Views: 500, Clicks: 60, AddToCart: 10, Purchases: 1,
					BounceRate: 33.25, FlipkartPrice: 20000 + d, AmazonPrice: 21000 + d, MyntraPrice: 22000 + d,
				},
			}
			r.SetCalendar()
			for _, col := range domain.DerivedColumns {
				r.SetDerived(col, ptr(float64(d*100)))
			}
			rows = append(rows, r)
		}
	}
	return rows
}

func testPredictions(rows []*domain.FeatureRow, price float64) []*domain.Prediction {
	preds := make([]*domain.Prediction, len(rows))
	for i, r := range rows {
		preds[i] = &domain.Prediction{Date: r.Date, ProductID: r.ProductID, PredictedPrice: price + float64(i)}
	}
	return preds
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
