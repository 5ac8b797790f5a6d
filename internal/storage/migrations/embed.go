// Package migrations applies the embedded schema files for PostgreSQL and ClickHouse.
package migrations

import "embed"

// PostgresFS holds the predicted_prices schema. daily_features is created per run.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the run history tables.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
