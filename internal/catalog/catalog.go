// Package catalog provides the tracked product list.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pricing-engine/internal/domain"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

var defaultProducts = []domain.Product{
	{ID: "M100", Brand: "Samsung", StorageVariant: "64GB", Category: "Mobile"},
	{ID: "M101", Brand: "Samsung", StorageVariant: "128GB", Category: "Mobile"},
	{ID: "M102", Brand: "Redmi", StorageVariant: "128GB", Category: "Mobile"},
	{ID: "M103", Brand: "Redmi", StorageVariant: "64GB", Category: "Mobile"},
	{ID: "M104", Brand: "Realme", StorageVariant: "128GB", Category: "Mobile"},
	{ID: "M105", Brand: "Realme", StorageVariant: "64GB", Category: "Mobile"},
	{ID: "M106", Brand: "Apple", StorageVariant: "128GB", Category: "Mobile"},
	{ID: "M107", Brand: "Apple", StorageVariant: "256GB", Category: "Mobile"},
	{ID: "M108", Brand: "OnePlus", StorageVariant: "128GB", Category: "Mobile"},
	{ID: "M109", Brand: "OnePlus", StorageVariant: "256GB", Category: "Mobile"},
}

// Default returns a copy of the built-in catalog.
func Default() []domain.Product {
	out := make([]domain.Product, len(defaultProducts))
	copy(out, defaultProducts)
	return out
}

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadFile reads a YAML catalog of the form:
//
//	products:
//	  - product_id: M100
//	    brand: Samsung
//	    storage_variant: 64GB
//	    category: Mobile
func LoadFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := Validate(f.Products); err != nil {
		return nil, err
	}
	return f.Products, nil
}

// Load returns the catalog at path, or the default catalog when path is empty.
func Load(path string) ([]domain.Product, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Validate checks ids are present, fit the product_id column and are unique.
func Validate(products []domain.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if p.ID == "" {
			return fmt.Errorf("%w: product %d has empty id", ErrInvalidCatalog, i)
		}
		if len(p.ID) > domain.MaxProductIDLength {
			return fmt.Errorf("%w: product id %q longer than %d", ErrInvalidCatalog, p.ID, domain.MaxProductIDLength)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
