package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pricing-engine/internal/domain"
)

func TestDefault(t *testing.T) {
	products := Default()
	if len(products) != 10 {
		t.Fatalf("Expected 10 products, got %d", len(products))
	}
	if err := Validate(products); err != nil {
		t.Fatalf("Default catalog invalid: %v", err)
	}

	// Mutating the copy must not leak into later calls
	products[0].ID = "X"
	if Default()[0].ID != "M100" {
		t.Error("Default() should return an independent copy")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `products:
  - product_id: L200
    brand: Dell
    storage_variant: 512GB
    category: Laptop
  - product_id: L201
    brand: HP
    storage_variant: 256GB
    category: Laptop
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	products, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := domain.Product{ID: "L201", Brand: "HP", StorageVariant: "256GB", Category: "Laptop"}
	if len(products) != 2 || products[1] != want {
		t.Errorf("Unexpected products: %+v", products)
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	products, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != len(defaultProducts) {
		t.Errorf("Expected default catalog, got %d products", len(products))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		products []domain.Product
	}{
		{"empty", nil},
		{"empty id", []domain.Product{{ID: ""}}},
		{"too long", []domain.Product{{ID: "ABCDEFGHIJK"}}},
		{"duplicate", []domain.Product{{ID: "M1"}, {ID: "M1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.products); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("Expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}
