// Package evaluation scores a trained price model against a labelled
// historical dataset and reports fit quality on a date split.
package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pricing-engine/internal/domain"
)

// RequiredColumns are the CSV header fields a dataset must carry.
var RequiredColumns = []string{
	"date", "product_id", "brand", "storage_variant", "category", "price",
	"units_sold", "revenue", "stock", "discount",
	"views", "clicks", "add_to_cart", "purchases", "bounce_rate",
	"flipkart_price", "amazon_price", "myntra_price",
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// Dataset is a labelled history: observations plus the actual price per key.
type Dataset struct {
	Observations []*domain.Observation
	Targets      map[domain.Key]float64
}

// LoadCSV reads a dataset. Calendar columns are derived from date;
// is_festival is optional.
func LoadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset has no header: %w", domain.ErrEmptyResultSet)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset missing columns %s: %w", strings.Join(missing, ", "), domain.ErrSchemaMismatch)
	}

	ds := &Dataset{Targets: make(map[domain.Key]float64)}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p := recordParser{rec: rec, idx: idx}
		o := &domain.Observation{
			Date:           p.date("date"),
			ProductID:      p.str("product_id"),
			Brand:          p.str("brand"),
			StorageVariant: p.str("storage_variant"),
			Category:       p.str("category"),
			UnitsSold:      p.int("units_sold"),
			Revenue:        p.int("revenue"),
			Stock:          p.int("stock"),
			Discount:       p.int("discount"),
			IsFestival:     p.optionalBool("is_festival"),
			Views:          p.int("views"),
			Clicks:         p.int("clicks"),
			AddToCart:      p.int("add_to_cart"),
			Purchases:      p.int("purchases"),
			BounceRate:     p.float("bounce_rate"),
			FlipkartPrice:  p.int("flipkart_price"),
			AmazonPrice:    p.int("amazon_price"),
			MyntraPrice:    p.int("myntra_price"),
		}
		price := p.float("price")
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line, p.err)
		}
		o.Price = price
		o.SetCalendar()

		k := o.Key()
		if _, dup := ds.Targets[k]; dup {
			return nil, fmt.Errorf("line %d: %s on %s appears twice", line, o.ProductID, o.Date.Format("2006-01-02"))
		}
		ds.Targets[k] = price
		ds.Observations = append(ds.Observations, o)
	}

	if len(ds.Observations) == 0 {
		return nil, fmt.Errorf("dataset has no rows: %w", domain.ErrEmptyResultSet)
	}
	return ds, nil
}

// recordParser reads typed fields from one CSV record, keeping the first error.
type recordParser struct {
	rec []string
	idx map[string]int
	err error
}

func (p *recordParser) raw(col string) (string, bool) {
	i, ok := p.idx[col]
	if !ok || i >= len(p.rec) {
		return "", false
	}
	return strings.TrimSpace(p.rec[i]), true
}

func (p *recordParser) fail(col, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s value %q: %w", col, v, err)
	}
}

func (p *recordParser) str(col string) string {
	v, _ := p.raw(col)
	if v == "" {
		p.fail(col, v, errors.New("empty"))
	}
	return v
}

func (p *recordParser) float(col string) float64 {
	v, _ := p.raw(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(col, v, err)
	}
	return f
}

// int accepts integral values written as floats ("12.0").
func (p *recordParser) int(col string) int {
	return int(math.Round(p.float(col)))
}

func (p *recordParser) optionalBool(col string) bool {
	v, ok := p.raw(col)
	if !ok || v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "1.0", "true", "t", "yes":
		return true
	case "0", "0.0", "false", "f", "no":
		return false
	}
	p.fail(col, v, errors.New("not a boolean"))
	return false
}

func (p *recordParser) date(col string) time.Time {
	v, _ := p.raw(col)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.TruncateDay(t)
		}
	}
	p.fail(col, v, errors.New("unrecognized date"))
	return time.Time{}
}
