package domain

import "errors"

// Pipeline error kinds. All are fatal for a run; callers wrap them with context.
var (
	// ErrDataSourceUnavailable is returned when the database cannot be reached.
	ErrDataSourceUnavailable = errors.New("data source unavailable")

	// ErrSchemaMismatch is returned when an expected column is absent from input or a table.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrModelInputMismatch is returned when the feature matrix does not match the model's expected columns.
	ErrModelInputMismatch = errors.New("model input mismatch")

	// ErrEmptyResultSet is returned when there are no rows to process or write.
	ErrEmptyResultSet = errors.New("empty result set")
)
