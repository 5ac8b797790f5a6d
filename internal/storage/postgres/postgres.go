package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pricing-engine/internal/observability"
	"pricing-engine/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// PoolOption configures NewPool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	connectTimeout time.Duration
	retryDelay     time.Duration
	maxConns       int32
	logger         *zap.Logger
}

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) { o.connectTimeout = d }
}

// WithRetryDelay sets the pause before the single reconnect attempt.
func WithRetryDelay(d time.Duration) PoolOption {
	return func(o *poolOptions) { o.retryDelay = d }
}

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) PoolOption {
	return func(o *poolOptions) { o.maxConns = n }
}

// WithLogger logs failed connection attempts.
func WithLogger(l *zap.Logger) PoolOption {
	return func(o *poolOptions) { o.logger = l }
}

// NewPool creates a new Postgres connection pool.
// A failed connection is retried once; if that fails too the error wraps
// storage.ErrDataSourceUnavailable.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	o := poolOptions{
		connectTimeout: 10 * time.Second,
		retryDelay:     2 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.ConnConfig.ConnectTimeout = o.connectTimeout
	if o.maxConns > 0 {
		config.MaxConns = o.maxConns
	}

	pool, err := connect(ctx, config, o.connectTimeout)
	if err == nil {
		return pool, nil
	}
	o.logger.Warn("postgres connection failed, retrying once",
		zap.Error(err), zap.Duration("delay", o.retryDelay))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connect to postgres: %w: %w", storage.ErrDataSourceUnavailable, ctx.Err())
	case <-time.After(o.retryDelay):
	}

	pool, err = connect(ctx, config, o.connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w: %w", storage.ErrDataSourceUnavailable, err)
	}
	return pool, nil
}

func connect(ctx context.Context, config *pgxpool.Config, timeout time.Duration) (*Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// ReportStats publishes the pool's connection counts.
func (p *Pool) ReportStats() {
	s := p.Stat()
	observability.UpdateDBConnections("postgres", s.TotalConns(), s.IdleConns())
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation   = "23505" // unique_violation
	pgErrCardinality       = "21000" // ON CONFLICT touching a row twice
	pgErrUndefinedTable    = "42P01"
	pgErrUndefinedColumn   = "42703"
	pgErrConnectionFailure = "08006"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	switch pgErrorCode(err) {
	case pgErrUniqueViolation, pgErrCardinality:
		return true
	}
	return false
}

func isUndefinedTable(err error) bool {
	return pgErrorCode(err) == pgErrUndefinedTable
}

func isUndefinedColumn(err error) bool {
	return pgErrorCode(err) == pgErrUndefinedColumn
}

// isConnectionError reports failures to reach the server rather than query errors.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) || pgErrorCode(err) == pgErrConnectionFailure
}

// classify maps driver errors onto storage sentinels.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, storage.ErrDuplicateKey, err)
	case isUndefinedColumn(err):
		return fmt.Errorf("%s: %w: %w", op, storage.ErrSchemaMismatch, err)
	case isConnectionError(err):
		return fmt.Errorf("%s: %w: %w", op, storage.ErrDataSourceUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
