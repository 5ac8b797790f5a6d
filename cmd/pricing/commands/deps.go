package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pricing-engine/internal/catalog"
	"pricing-engine/internal/features"
	"pricing-engine/internal/logging"
	"pricing-engine/internal/pipeline"
	"pricing-engine/internal/scoring"
	"pricing-engine/internal/storage"
	chstore "pricing-engine/internal/storage/clickhouse"
	"pricing-engine/internal/storage/memory"
	"pricing-engine/internal/storage/migrations"
	pgstore "pricing-engine/internal/storage/postgres"
	"pricing-engine/internal/telemetry"
)

// stores holds the storage implementations used by the commands.
type stores struct {
	writer  storage.RunWriter
	reader  storage.SalesReader
	archive storage.RunArchive // nil when no archive is configured
	pool    *pgstore.Pool      // nil in memory mode
	close   func()
}

// openStores connects to PostgreSQL and, when configured, ClickHouse.
// With --use-memory everything lives in process.
func openStores(ctx context.Context) (*stores, error) {
	if useMemory {
		logger.Info("Using in-memory storage")
		rs := memory.NewRunStore()
		return &stores{writer: rs, reader: rs, archive: memory.NewArchive(), close: func() {}}, nil
	}

	dsn := cfg.Database.DSN()
	logger.Info("Connecting to PostgreSQL", zap.String("dsn", logging.SanitizeDSN(dsn)))
	pool, err := pgstore.NewPool(ctx, dsn,
		pgstore.WithConnectTimeout(cfg.Database.ConnectTimeout),
		pgstore.WithMaxConns(cfg.Database.MaxConns),
		pgstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	pool.ReportStats()

	rs := pgstore.NewRunStore(pool)
	s := &stores{writer: rs, reader: rs, pool: pool, close: pool.Close}

	if cfg.ClickHouse.DSN != "" {
		openArchive(ctx, s, cfg.ClickHouse.DSN)
	}
	return s, nil
}

// migrateArchive connects to ClickHouse and creates the run history tables.
var migrateArchive = migrations.RunClickhouseMigrations

// openArchive attaches the ClickHouse run archive to s. The archive is
// optional: when it cannot be opened the run still writes to PostgreSQL.
func openArchive(ctx context.Context, s *stores, dsn string) {
	logger.Info("Connecting to ClickHouse", zap.String("dsn", logging.SanitizeDSN(dsn)))
	conn, err := migrateArchive(ctx, dsn, logger)
	if err != nil {
		logger.Warn("ClickHouse connect or history migration failed, run history disabled",
			zap.String("dsn", logging.SanitizeDSN(dsn)),
			zap.Error(err))
		return
	}
	s.archive = chstore.NewRunArchive(conn)
	closeRest := s.close
	s.close = func() {
		_ = conn.Close()
		closeRest()
	}
}

// loadModel loads the model and, when configured, the training codebook.
func loadModel() (*scoring.XGBoost, *features.Codebook, error) {
	model, err := scoring.LoadXGBoost(cfg.Model.Path, features.ModelFeatures)
	if err != nil {
		return nil, nil, err
	}
	if err := checkModelColumns(model); err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", cfg.Model.Path, err)
	}
	logger.Info("Model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Int("trees", model.NumTrees()),
		zap.Int("features", len(model.Features())))

	if cfg.Model.CodebookPath == "" {
		return model, nil, nil
	}
	cb, err := features.LoadCodebook(cfg.Model.CodebookPath)
	if err != nil {
		return nil, nil, err
	}
	return model, cb, nil
}

// checkModelColumns fails fast on a model trained on a column the feature builder does not produce.
func checkModelColumns(m scoring.Model) error {
	for _, col := range m.Features() {
		if !features.HasColumn(col) {
			return fmt.Errorf("feature %q not produced by feature builder: %w", col, scoring.ErrModelInputMismatch)
		}
	}
	return nil
}

// buildPipeline wires the daily pipeline over s.
func buildPipeline(s *stores) (*pipeline.Daily, error) {
	products, err := catalog.Load(cfg.Pipeline.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	fill, err := features.ParseFill(cfg.Pipeline.Fill)
	if err != nil {
		return nil, err
	}
	model, cb, err := loadModel()
	if err != nil {
		return nil, err
	}

	opts := []features.Option{features.WithFill(fill)}
	if cb != nil {
		opts = append(opts, features.WithCodebook(cb))
	}

	return pipeline.New(pipeline.Options{
		Products:  products,
		Generator: telemetry.NewGenerator(cfg.Pipeline.Seed),
		Builder:   features.NewBuilder(opts...),
		Model:     model,
		Writer:    s.writer,
		Archive:   s.archive,
		Days:      cfg.Pipeline.Days,
		Timeout:   cfg.Pipeline.Timeout,
		Logger:    logger,
	})
}
