package storage

import (
	"errors"

	"pricing-engine/internal/domain"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a batch contains the same (date, product_id) twice.
	ErrDuplicateKey = errors.New("duplicate key in batch")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataSourceUnavailable is returned when the database cannot be reached.
	ErrDataSourceUnavailable = domain.ErrDataSourceUnavailable

	// ErrSchemaMismatch is returned when a table lacks an expected column.
	ErrSchemaMismatch = domain.ErrSchemaMismatch

	// ErrEmptyResultSet is returned when a write has no rows or a read finds no table data.
	ErrEmptyResultSet = domain.ErrEmptyResultSet
)
