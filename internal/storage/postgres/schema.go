package postgres

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5"

	"pricing-engine/internal/domain"
)

// maxBindParams is the PostgreSQL wire protocol limit on parameters per statement.
const maxBindParams = 65535

const stagingTable = "daily_features_staging"

// runLockKey guards daily_features: writers take it exclusively, readers shared.
var runLockKey = int64(xxhash.Sum64String("pricing-engine/daily_features"))

var keyColumns = []string{"date", "product_id"}

// featureColumns lists daily_features columns in table order.
var featureColumns = append([]string{
	"date", "product_id", "brand", "storage_variant", "category",
	"units_sold", "revenue", "stock", "discount", "is_festival",
	"views", "clicks", "add_to_cart", "purchases", "bounce_rate",
	"flipkart_price", "amazon_price", "myntra_price",
	"day_of_week", "month", "is_weekend",
}, domain.DerivedColumns...)

var predictionColumns = []string{"date", "product_id", "predicted_price"}

// predictionTableDDL mirrors migrations/postgres/001_predicted_prices.sql so a
// run against an unmigrated database still has a prediction table to upsert into.
var predictionTableDDL = []string{
	`CREATE TABLE IF NOT EXISTS predicted_prices (
		date            DATE             NOT NULL,
		product_id      VARCHAR(10)      NOT NULL,
		predicted_price DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (date, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predicted_prices_product ON predicted_prices (product_id, date)`,
}

// featureTableDDL creates a table with the daily_features layout.
func featureTableDDL(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
	b.WriteString(`
		date            DATE        NOT NULL,
		product_id      VARCHAR(10) NOT NULL,
		brand           TEXT        NOT NULL,
		storage_variant TEXT        NOT NULL,
		category        TEXT        NOT NULL,
		units_sold      INTEGER     NOT NULL,
		revenue         BIGINT      NOT NULL,
		stock           INTEGER     NOT NULL,
		discount        INTEGER     NOT NULL,
		is_festival     BOOLEAN     NOT NULL,
		views           INTEGER     NOT NULL,
		clicks          INTEGER     NOT NULL,
		add_to_cart     INTEGER     NOT NULL,
		purchases       INTEGER     NOT NULL,
		bounce_rate     DOUBLE PRECISION NOT NULL,
		flipkart_price  INTEGER     NOT NULL,
		amazon_price    INTEGER     NOT NULL,
		myntra_price    INTEGER     NOT NULL,
		day_of_week     INTEGER     NOT NULL,
		month           INTEGER     NOT NULL,
		is_weekend      BOOLEAN     NOT NULL,
`)
	for _, col := range domain.DerivedColumns {
		fmt.Fprintf(&b, "\t\t%s DOUBLE PRECISION,\n", col)
	}
	b.WriteString("\t\tPRIMARY KEY (date, product_id)\n\t)")
	return b.String()
}

// upsertSQL builds a multi-row INSERT ... ON CONFLICT (date, product_id) DO UPDATE for n rows.
func upsertSQL(table string, columns []string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	param := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", param)
			param++
		}
		b.WriteByte(')')
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(keyColumns, ", "))
	first := true
	for _, col := range columns {
		if col == "date" || col == "product_id" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", col, col)
	}
	return b.String()
}

// chunkRows returns the largest row count per statement that stays within maxBindParams.
func chunkRows(numColumns int) int {
	return maxBindParams / numColumns
}

func featureValues(r *domain.FeatureRow) []any {
	vals := []any{
		domain.TruncateDay(r.Date), r.ProductID, r.Brand, r.StorageVariant, r.Category,
		r.UnitsSold, r.Revenue, r.Stock, r.Discount, r.IsFestival,
		r.Views, r.Clicks, r.AddToCart, r.Purchases, r.BounceRate,
		r.FlipkartPrice, r.AmazonPrice, r.MyntraPrice,
		r.DayOfWeek, r.Month, r.IsWeekend,
	}
	for _, col := range domain.DerivedColumns {
		v, _ := r.Derived(col)
		vals = append(vals, v)
	}
	return vals
}

func predictionValues(p *domain.Prediction) []any {
	return []any{domain.TruncateDay(p.Date), p.ProductID, p.PredictedPrice}
}

// selectFeatureColumns is the daily_features column list qualified by alias.
func selectFeatureColumns(alias string) string {
	cols := make([]string, len(featureColumns))
	for i, c := range featureColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// scanFeatureRow scans featureColumns plus any extra destinations.
func scanFeatureRow(row pgx.Row, extra ...any) (*domain.FeatureRow, error) {
	var r domain.FeatureRow
	derived := make([]*float64, len(domain.DerivedColumns))
	dest := []any{
		&r.Date, &r.ProductID, &r.Brand, &r.StorageVariant, &r.Category,
		&r.UnitsSold, &r.Revenue, &r.Stock, &r.Discount, &r.IsFestival,
		&r.Views, &r.Clicks, &r.AddToCart, &r.Purchases, &r.BounceRate,
		&r.FlipkartPrice, &r.AmazonPrice, &r.MyntraPrice,
		&r.DayOfWeek, &r.Month, &r.IsWeekend,
	}
	for i := range derived {
		dest = append(dest, &derived[i])
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i, col := range domain.DerivedColumns {
		r.SetDerived(col, derived[i])
	}
	r.Date = r.Date.UTC()
	return &r, nil
}
