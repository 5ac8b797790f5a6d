// Package pipeline runs the daily pricing job:
// generate telemetry → build features → score → persist → archive.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/features"
	"pricing-engine/internal/logging"
	"pricing-engine/internal/observability"
	"pricing-engine/internal/scoring"
	"pricing-engine/internal/storage"
	"pricing-engine/internal/telemetry"
)

// Phase names used in logs and metrics.
const (
	PhaseGenerate = "generate"
	PhaseBuild    = "build"
	PhaseScore    = "score"
	PhaseWrite    = "write"
	PhaseArchive  = "archive"
	PhaseTotal    = "total"
)

// Daily coordinates one end-to-end pipeline run.
type Daily struct {
	products  []domain.Product
	generator *telemetry.Generator
	days      int
	builder   *features.Builder
	model     scoring.Model
	writer    storage.RunWriter
	archive   storage.RunArchive
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Options for creating Daily.
type Options struct {
	// Required
	Products  []domain.Product
	Generator *telemetry.Generator
	Builder   *features.Builder
	Model     scoring.Model
	Writer    storage.RunWriter

	// Optional
	Archive storage.RunArchive // nil disables run history
	Days    int                // defaults to 31
	Timeout time.Duration      // zero means no bound beyond ctx
	Now     func() time.Time
	Logger  *zap.Logger
}

// New creates a Daily pipeline.
func New(opts Options) (*Daily, error) {
	switch {
	case len(opts.Products) == 0:
		return nil, fmt.Errorf("pipeline: no products")
	case opts.Generator == nil:
		return nil, fmt.Errorf("pipeline: generator is required")
	case opts.Builder == nil:
		return nil, fmt.Errorf("pipeline: feature builder is required")
	case opts.Model == nil:
		return nil, fmt.Errorf("pipeline: model is required")
	case opts.Writer == nil:
		return nil, fmt.Errorf("pipeline: run writer is required")
	}

	d := &Daily{
		products:  opts.Products,
		generator: opts.Generator,
		days:      opts.Days,
		builder:   opts.Builder,
		model:     opts.Model,
		writer:    opts.Writer,
		archive:   opts.Archive,
		timeout:   opts.Timeout,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if d.days <= 0 {
		d.days = 31
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.logger = logging.OrNop(d.logger)
	return d, nil
}

// RunResult summarizes a successful run.
type RunResult struct {
	RunID           string
	Window          telemetry.Window
	RowsGenerated   int
	FeatureRows     int
	Predictions     int
	CodebookDerived bool
	Archived        bool
	Duration        time.Duration
}

// Run executes the pipeline once. Any failure before the write is fatal and
// nothing is persisted. Archive failures are logged and counted only.
func (d *Daily) Run(ctx context.Context) (result *RunResult, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	result = &RunResult{
		RunID:  uuid.NewString(),
		Window: telemetry.DefaultWindow(d.now(), d.days),
	}
	log := d.logger.With(zap.String("run_id", result.RunID))
	log.Info("pipeline run started",
		zap.Time("window_start", result.Window.Start),
		zap.Time("window_end", result.Window.End()),
		zap.Int("products", len(d.products)))

	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			log.Error("pipeline run failed", zap.Error(err))
		}
		observability.RecordPipelinePhase(PhaseTotal, status, time.Since(started).Seconds())
	}()

	// Phase 1: synthesize telemetry
	var obs []*domain.Observation
	if err := d.phase(ctx, PhaseGenerate, func() (err error) {
		obs, err = d.generator.Generate(d.products, result.Window)
		return err
	}); err != nil {
		return nil, fmt.Errorf("generate telemetry: %w", err)
	}
	result.RowsGenerated = len(obs)
	observability.RecordRowsGenerated(len(obs))
	log.Debug("telemetry generated", zap.Int("rows", len(obs)))

	// Phase 2: features
	result.CodebookDerived = d.builder.Codebook() == nil
	if result.CodebookDerived {
		log.Warn("no codebook configured, categorical codes derived from this run's data")
	}
	var rows []*domain.FeatureRow
	if err := d.phase(ctx, PhaseBuild, func() (err error) {
		rows, err = d.builder.Build(obs)
		return err
	}); err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}
	result.FeatureRows = len(rows)

	// Phase 3: scoring
	var preds []*domain.Prediction
	if err := d.phase(ctx, PhaseScore, func() (err error) {
		preds, err = scoring.Score(ctx, d.model, rows)
		return err
	}); err != nil {
		return nil, fmt.Errorf("score features: %w", err)
	}
	result.Predictions = len(preds)

	// Phase 4: persist both tables as one unit
	if err := d.phase(ctx, PhaseWrite, func() error {
		return d.writer.WriteRun(ctx, rows, preds)
	}); err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}
	log.Info("run persisted", zap.Int("feature_rows", len(rows)), zap.Int("predictions", len(preds)))

	// Phase 5: history, best effort
	if d.archive != nil {
		if err := d.phase(ctx, PhaseArchive, func() error {
			return d.archive.Archive(ctx, result.RunID, rows, preds)
		}); err != nil {
			observability.RecordArchiveFailure()
			log.Warn("run archive failed", zap.Error(err))
		} else {
			result.Archived = true
		}
	}

	result.Duration = time.Since(started)
	observability.RecordPipelineSuccess(time.Now())
	log.Info("pipeline run completed", zap.Duration("duration", result.Duration))
	return result, nil
}

// phase runs fn after checking ctx and records its duration and outcome.
func (d *Daily) phase(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		observability.RecordPipelinePhase(name, "error", 0)
		return err
	}
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelinePhase(name, status, time.Since(start).Seconds())
	return err
}
