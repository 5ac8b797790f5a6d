package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-engine/internal/domain"
)

var day0 = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

// series returns n consecutive daily observations for a product with price = base + day index.
func series(productID string, base, n int) []*domain.Observation {
	out := make([]*domain.Observation, n)
	for i := 0; i < n; i++ {
		o := &domain.Observation{
			Date:           day0.AddDate(0, 0, i),
			ProductID:      productID,
			Brand:          "Samsung",
			StorageVariant: "128GB",
			Category:       "Mobile",
			Price:          float64(base + i),
			UnitsSold:      2,
			Revenue:        2 * (base + i),
			FlipkartPrice:  base + 100 + i,
			AmazonPrice:    base + 200 + i,
			MyntraPrice:    base + 300 + i,
		}
		o.SetCalendar()
		out[i] = o
	}
	return out
}

func val(t *testing.T, r *domain.FeatureRow, col string) float64 {
	t.Helper()
	v, ok := r.Derived(col)
	require.True(t, ok, "unknown column %s", col)
	require.NotNil(t, v, "column %s is nil", col)
	return *v
}

func TestBuild_LagsAndRollingMeans(t *testing.T) {
	obs := series("M100", 1000, 10)

	rows, err := NewBuilder().Build(obs)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	// Day 0: no history, zero filled.
	assert.Equal(t, 0.0, val(t, rows[0], domain.ColPriceLag1))
	assert.Equal(t, 0.0, val(t, rows[0], domain.ColPriceRolling7))

	// Day 3: lag1 = day 2 price, rolling7 = mean of days 0..2.
	assert.Equal(t, 1002.0, val(t, rows[3], domain.ColPriceLag1))
	assert.Equal(t, 1002.0, val(t, rows[3], domain.ColPriceRolling1))
	assert.Equal(t, 0.0, val(t, rows[3], domain.ColPriceLag7))
	assert.Equal(t, 1001.0, val(t, rows[3], domain.ColPriceRolling7))

	// Day 8: full 7-day window over days 1..7.
	assert.Equal(t, 1001.0, val(t, rows[8], domain.ColPriceLag7))
	assert.Equal(t, 1004.0, val(t, rows[8], domain.ColPriceRolling7))
	assert.Equal(t, 1107.0, val(t, rows[8], domain.ColFlipkartPriceLag1))
	assert.Equal(t, 1201.0, val(t, rows[8], domain.ColAmazonPriceLag7))
	assert.Equal(t, 1307.0, val(t, rows[8], domain.ColMyntraPriceLag1))
}

func TestBuild_ProductIsolation(t *testing.T) {
	a := series("M100", 1000, 5)
	b := series("M101", 5000, 5)

	// Interleave so products are not contiguous in the input.
	var obs []*domain.Observation
	for i := range a {
		obs = append(obs, b[i], a[i])
	}

	rows, err := NewBuilder().Build(obs)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	for i, r := range rows {
		if i < 5 {
			require.Equal(t, "M100", r.ProductID)
		} else {
			require.Equal(t, "M101", r.ProductID)
		}
	}

	// First row of M101 must not see M100's last price.
	if got := val(t, rows[5], domain.ColPriceLag1); got != 0 {
		t.Errorf("Expected M101 day 0 lag1 = 0, got %v", got)
	}
	if got := val(t, rows[6], domain.ColPriceLag1); got != 5000 {
		t.Errorf("Expected M101 day 1 lag1 = 5000, got %v", got)
	}
}

func TestBuild_OtherProductChangesDoNotLeak(t *testing.T) {
	a := series("M100", 1000, 9)
	b := series("M101", 5000, 9)

	before, err := NewBuilder().Build(append(append([]*domain.Observation{}, a...), b...))
	require.NoError(t, err)

	for i, o := range b {
		o.Price = float64(90000 - 1000*i)
		o.FlipkartPrice = 1
		o.AmazonPrice = 2
		o.MyntraPrice = 3
	}
	after, err := NewBuilder().Build(append(append([]*domain.Observation{}, b...), a...))
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := 0; i < len(a); i++ {
		require.Equal(t, "M100", before[i].ProductID)
		require.Equal(t, "M100", after[i].ProductID)
		for _, col := range domain.DerivedColumns {
			assert.Equal(t, val(t, before[i], col), val(t, after[i], col), "day %d %s", i, col)
		}
	}

	// M101 itself did change.
	assert.NotEqual(t, val(t, before[10], domain.ColPriceLag1), val(t, after[10], domain.ColPriceLag1))
}

func TestBuild_UnsortedDates(t *testing.T) {
	obs := series("M100", 1000, 4)
	obs[0], obs[3] = obs[3], obs[0]

	rows, err := NewBuilder().Build(obs)
	require.NoError(t, err)

	for i := 1; i < len(rows); i++ {
		require.True(t, rows[i-1].Date.Before(rows[i].Date))
	}
	assert.Equal(t, 1002.0, val(t, rows[3], domain.ColPriceLag1))
}

func TestBuild_FillMissing(t *testing.T) {
	rows, err := NewBuilder(WithFill(FillMissing)).Build(series("M100", 1000, 3))
	require.NoError(t, err)

	v, _ := rows[0].Derived(domain.ColPriceLag1)
	assert.Nil(t, v)
	v, _ = rows[2].Derived(domain.ColPriceLag7)
	assert.Nil(t, v)
	assert.Equal(t, 1000.5, val(t, rows[2], domain.ColPriceRolling7))
}

func TestBuild_DropIncomplete(t *testing.T) {
	rows, err := NewBuilder(WithDropIncomplete()).Build(series("M100", 1000, 10))
	require.NoError(t, err)

	// Only days 7..9 have a full 7-day history.
	require.Len(t, rows, 3)
	assert.Equal(t, day0.AddDate(0, 0, 7), rows[0].Date)

	_, err = NewBuilder(WithDropIncomplete()).Build(series("M100", 1000, 5))
	assert.ErrorIs(t, err, domain.ErrEmptyResultSet)
}

func TestBuild_Errors(t *testing.T) {
	_, err := NewBuilder().Build(nil)
	if !errors.Is(err, domain.ErrEmptyResultSet) {
		t.Errorf("Expected ErrEmptyResultSet, got %v", err)
	}

	obs := series("M100", 1000, 2)
	obs = append(obs, obs[1])
	_, err = NewBuilder().Build(obs)
	if !errors.Is(err, ErrDuplicateObservation) {
		t.Errorf("Expected ErrDuplicateObservation, got %v", err)
	}

	bad := []Series{{Name: "views", Value: func(o *domain.Observation) float64 { return 0 }, Lags: []int{1}}}
	_, err = NewBuilder(WithSeries(bad)).Build(series("M100", 1000, 2))
	if !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch, got %v", err)
	}
}

func TestBuild_DoesNotModifyInput(t *testing.T) {
	obs := series("M100", 1000, 3)
	first := obs[0]
	obs[0], obs[2] = obs[2], obs[0]

	_, err := NewBuilder().Build(obs)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, first.Price)
}

func TestBuild_FixedCodebook(t *testing.T) {
	cb := NewCodebook(map[string][]string{
		ColProductID:      {"M101", "M100"},
		ColBrand:          {"Samsung", "Apple"},
		ColStorageVariant: {"128GB"},
		ColCategory:       {"Mobile"},
	})

	rows, err := NewBuilder(WithCodebook(cb)).Build(series("M101", 1000, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].Codes.ProductID)
	assert.Equal(t, 1, rows[0].Codes.Brand)

	_, err = NewBuilder(WithCodebook(cb)).Build(series("M999", 1000, 1))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestMatrix(t *testing.T) {
	rows, err := NewBuilder(WithFill(FillMissing)).Build(series("M100", 1000, 2))
	require.NoError(t, err)

	m, err := Matrix(rows, []string{"units_sold", "is_weekend", domain.ColPriceLag1})
	require.NoError(t, err)
	require.Len(t, m, 2)

	assert.Equal(t, 2.0, m[0][0])
	assert.True(t, math.IsNaN(m[0][2]))
	assert.Equal(t, 1000.0, m[1][2])

	_, err = Matrix(rows, []string{"units_sold", "margin"})
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestModelFeaturesAreProduced(t *testing.T) {
	for _, col := range ModelFeatures {
		if !HasColumn(col) {
			t.Errorf("Model feature %s has no column", col)
		}
	}
}

func TestParseFill(t *testing.T) {
	tests := []struct {
		in      string
		want    Fill
		wantErr bool
	}{
		{"", FillZero, false},
		{"zero", FillZero, false},
		{"MISSING", FillMissing, false},
		{"mean", FillZero, true},
	}
	for _, tt := range tests {
		got, err := ParseFill(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFill(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFill(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
