package features

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"pricing-engine/internal/domain"
)

// CodebookVersion is the artifact format written by Save.
const CodebookVersion = 1

// Categorical column names.
const (
	ColProductID      = "product_id"
	ColBrand          = "brand"
	ColStorageVariant = "storage_variant"
	ColCategory       = "category"
)

// CategoricalColumns lists the columns encoded by a Codebook.
var CategoricalColumns = []string{ColBrand, ColStorageVariant, ColCategory, ColProductID}

// ErrUnknownCategory is returned when a label is missing from a loaded codebook.
var ErrUnknownCategory = errors.New("unknown category")

// Codebook maps categorical labels to integer codes.
// A label's code is its index in the sorted label list of its column.
type Codebook struct {
	Version int                 `yaml:"version"`
	Columns map[string][]string `yaml:"columns"`

	index map[string]map[string]int
}

// NewCodebook builds a codebook from label lists. Lists are sorted and deduplicated.
func NewCodebook(columns map[string][]string) *Codebook {
	cb := &Codebook{Version: CodebookVersion, Columns: make(map[string][]string, len(columns))}
	for col, labels := range columns {
		sorted := slices.Clone(labels)
		slices.Sort(sorted)
		cb.Columns[col] = slices.Compact(sorted)
	}
	cb.reindex()
	return cb
}

// DeriveCodebook builds a codebook from the labels present in observations.
// Codes are only consistent within the set of rows passed in.
func DeriveCodebook(observations []*domain.Observation) *Codebook {
	cols := make(map[string][]string, len(CategoricalColumns))
	for _, o := range observations {
		for _, col := range CategoricalColumns {
			cols[col] = append(cols[col], categoricalValue(o, col))
		}
	}
	return NewCodebook(cols)
}

// LoadCodebook reads a YAML codebook artifact.
func LoadCodebook(path string) (*Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codebook: %w", err)
	}

	var cb Codebook
	if err := yaml.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("parse codebook %s: %w", path, err)
	}
	if cb.Version != CodebookVersion {
		return nil, fmt.Errorf("codebook %s: unsupported version %d", path, cb.Version)
	}
	for _, col := range CategoricalColumns {
		if _, ok := cb.Columns[col]; !ok {
			return nil, fmt.Errorf("codebook %s missing column %s: %w", path, col, domain.ErrSchemaMismatch)
		}
	}
	return NewCodebook(cb.Columns), nil
}

// Save writes the codebook as YAML.
func (cb *Codebook) Save(path string) error {
	data, err := yaml.Marshal(cb)
	if err != nil {
		return fmt.Errorf("marshal codebook: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write codebook: %w", err)
	}
	return nil
}

// Code returns the code of label in column.
func (cb *Codebook) Code(column, label string) (int, error) {
	labels, ok := cb.index[column]
	if !ok {
		return 0, fmt.Errorf("column %s: %w", column, domain.ErrSchemaMismatch)
	}
	code, ok := labels[label]
	if !ok {
		return 0, fmt.Errorf("%s=%q: %w", column, label, ErrUnknownCategory)
	}
	return code, nil
}

// Encode returns the codes of an observation's categorical columns.
func (cb *Codebook) Encode(o *domain.Observation) (domain.CategoryCodes, error) {
	var codes domain.CategoryCodes
	var err error
	if codes.ProductID, err = cb.Code(ColProductID, o.ProductID); err != nil {
		return codes, err
	}
	if codes.Brand, err = cb.Code(ColBrand, o.Brand); err != nil {
		return codes, err
	}
	if codes.StorageVariant, err = cb.Code(ColStorageVariant, o.StorageVariant); err != nil {
		return codes, err
	}
	if codes.Category, err = cb.Code(ColCategory, o.Category); err != nil {
		return codes, err
	}
	return codes, nil
}

func (cb *Codebook) reindex() {
	cb.index = make(map[string]map[string]int, len(cb.Columns))
	for col, labels := range cb.Columns {
		m := make(map[string]int, len(labels))
		for i, l := range labels {
			m[l] = i
		}
		cb.index[col] = m
	}
}

func categoricalValue(o *domain.Observation, column string) string {
	switch column {
	case ColProductID:
		return o.ProductID
	case ColBrand:
		return o.Brand
	case ColStorageVariant:
		return o.StorageVariant
	case ColCategory:
		return o.Category
	}
	return ""
}
