package domain

// MaxProductIDLength is the width of the product_id column.
const MaxProductIDLength = 10

// Product represents a tracked catalog entity.
// Immutable reference data, loaded once per run.
type Product struct {
	ID             string `yaml:"product_id" json:"product_id"`
	Brand          string `yaml:"brand" json:"brand"`
	StorageVariant string `yaml:"storage_variant" json:"storage_variant"`
	Category       string `yaml:"category" json:"category"`
}
