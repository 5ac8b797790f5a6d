// Package telemetry synthesizes daily e-commerce observations for a catalog.
package telemetry

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"pricing-engine/internal/domain"
)

var (
	// ErrEmptyCatalog is returned when no products are supplied.
	ErrEmptyCatalog = errors.New("empty catalog")
	// ErrEmptyWindow is returned when the window has no days.
	ErrEmptyWindow = errors.New("empty date window")
)

// Value ranges, inclusive.
const (
	minUnits, maxUnits           = 1, 30
	minPrice, maxPrice           = 10000, 50000
	minStock, maxStock           = 40, 120
	minDiscount, maxDiscount     = 0, 10
	minViews, maxViews           = 100, 700
	minClicks, maxClicks         = 30, 100
	minAddToCart, maxAddToCart   = 0, 70
	minBounceRate, maxBounceRate = 30.0, 80.0
)

// Generator produces one Observation per (product, date).
// Each row draws from its own random stream derived from (seed, product, date),
// so rows share no random state and a fixed seed reproduces the same data.
type Generator struct {
	seed uint64
}

// NewGenerator creates a generator with the given seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{seed: seed}
}

// Generate returns len(products) * window.Days observations ordered by date, then catalog order.
func (g *Generator) Generate(products []domain.Product, window Window) ([]*domain.Observation, error) {
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	dates := window.Dates()
	if len(dates) == 0 {
		return nil, ErrEmptyWindow
	}

	out := make([]*domain.Observation, 0, len(products)*len(dates))
	for _, date := range dates {
		for _, p := range products {
			out = append(out, g.observe(p, date))
		}
	}
	return out, nil
}

func (g *Generator) observe(p domain.Product, date time.Time) *domain.Observation {
	r := g.rowRand(p.ID, date)

	units := intIn(r, minUnits, maxUnits)
	price := intIn(r, minPrice, maxPrice)

	o := &domain.Observation{
		Date:           date,
		ProductID:      p.ID,
		Brand:          p.Brand,
		StorageVariant: p.StorageVariant,
		Category:       p.Category,
		Price:          float64(price),
		UnitsSold:      units,
		Revenue:        price * units,
		Stock:          intIn(r, minStock, maxStock),
		Discount:       intIn(r, minDiscount, maxDiscount),
		IsFestival:     r.IntN(2) == 1,
		Views:          intIn(r, minViews, maxViews),
		Clicks:         intIn(r, minClicks, maxClicks),
		AddToCart:      intIn(r, minAddToCart, maxAddToCart),
		Purchases:      intIn(r, 1, units),
		BounceRate:     round2(minBounceRate + r.Float64()*(maxBounceRate-minBounceRate)),
		FlipkartPrice:  intIn(r, minPrice, maxPrice),
		AmazonPrice:    intIn(r, minPrice, maxPrice),
		MyntraPrice:    intIn(r, minPrice, maxPrice),
	}
	o.SetCalendar()
	return o
}

// rowRand seeds a PCG stream from xxhash(seed, product id, date).
func (g *Generator) rowRand(productID string, date time.Time) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], g.seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(date.Unix()))

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(productID)
	hi := d.Sum64()
	lo := xxhash.Sum64(append(buf[:], productID...)) ^ 0x9e3779b97f4a7c15

	return rand.New(rand.NewPCG(hi, lo))
}

func intIn(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
