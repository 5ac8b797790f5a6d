package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricing-engine/internal/logging"
	"pricing-engine/internal/storage/migrations"
	pgstore "pricing-engine/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Creates predicted_prices in PostgreSQL and, when CLICKHOUSE_DSN is set,
the run history tables in ClickHouse. daily_features is created by each
pipeline run.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if useMemory {
		return fmt.Errorf("migrate needs a database; drop --use-memory")
	}
	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN(),
		pgstore.WithConnectTimeout(cfg.Database.ConnectTimeout),
		pgstore.WithLogger(logger))
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool, logger)
	if err != nil {
		return err
	}
	logger.Info("PostgreSQL migrations applied", zap.Strings("files", applied))

	if cfg.ClickHouse.DSN == "" {
		return nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("ClickHouse migrations applied", zap.String("dsn", logging.SanitizeDSN(cfg.ClickHouse.DSN)))
	return nil
}
