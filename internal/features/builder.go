// Package features turns raw observations into model-ready feature rows:
// categorical codes plus per-product lag and rolling-mean columns.
package features

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"pricing-engine/internal/domain"
)

// ErrDuplicateObservation is returned when two observations share a (product, date) key.
var ErrDuplicateObservation = errors.New("duplicate observation")

// Fill selects the value of a lag/rolling column that has no history.
type Fill int

const (
	// FillZero writes 0 when no earlier value exists.
	FillZero Fill = iota
	// FillMissing leaves the value NULL (NaN in the model matrix).
	FillMissing
)

// ParseFill parses "zero" or "missing".
func ParseFill(s string) (Fill, error) {
	switch strings.ToLower(s) {
	case "", "zero":
		return FillZero, nil
	case "missing":
		return FillMissing, nil
	}
	return FillZero, fmt.Errorf("unknown fill policy %q", s)
}

// String returns the policy name.
func (f Fill) String() string {
	if f == FillMissing {
		return "missing"
	}
	return "zero"
}

// Series is a numeric source column with the lags and rolling windows derived from it.
type Series struct {
	Name     string
	Value    func(o *domain.Observation) float64
	Lags     []int
	Rollings []int
}

// LagColumn returns the name of the lag-k column.
func (s Series) LagColumn(k int) string { return fmt.Sprintf("%s_lag%d", s.Name, k) }

// RollingColumn returns the name of the rolling-k column.
func (s Series) RollingColumn(k int) string { return fmt.Sprintf("%s_rolling%d", s.Name, k) }

// DefaultSeries derives lags and rolling means of the own price and lags of each competitor price.
var DefaultSeries = []Series{
	{Name: "price", Value: func(o *domain.Observation) float64 { return o.Price }, Lags: []int{1, 7}, Rollings: []int{1, 7}},
	{Name: "flipkart_price", Value: func(o *domain.Observation) float64 { return float64(o.FlipkartPrice) }, Lags: []int{1, 7}},
	{Name: "amazon_price", Value: func(o *domain.Observation) float64 { return float64(o.AmazonPrice) }, Lags: []int{1, 7}},
	{Name: "myntra_price", Value: func(o *domain.Observation) float64 { return float64(o.MyntraPrice) }, Lags: []int{1, 7}},
}

// Builder computes feature rows.
type Builder struct {
	codebook       *Codebook
	series         []Series
	fill           Fill
	dropIncomplete bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithCodebook encodes categoricals with a fixed codebook instead of deriving one per build.
func WithCodebook(cb *Codebook) Option {
	return func(b *Builder) { b.codebook = cb }
}

// WithSeries replaces the default series.
func WithSeries(series []Series) Option {
	return func(b *Builder) { b.series = series }
}

// WithFill sets the no-history policy.
func WithFill(f Fill) Option {
	return func(b *Builder) { b.fill = f }
}

// WithDropIncomplete drops rows whose lags or rolling windows are not fully backed by history.
func WithDropIncomplete() Option {
	return func(b *Builder) { b.dropIncomplete = true }
}

// NewBuilder creates a Builder with DefaultSeries and FillZero.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{series: DefaultSeries, fill: FillZero}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Codebook returns the fixed codebook, nil when codes are derived per build.
func (b *Builder) Codebook() *Codebook {
	return b.codebook
}

// Build returns one feature row per observation, ordered by (product_id, date).
// Rows are grouped by product and ordered by date before lags are taken, so
// a row's derived values depend only on earlier rows of the same product.
// Inputs are not modified.
func (b *Builder) Build(observations []*domain.Observation) ([]*domain.FeatureRow, error) {
	if len(observations) == 0 {
		return nil, domain.ErrEmptyResultSet
	}
	if err := b.checkSeries(); err != nil {
		return nil, err
	}

	cb := b.codebook
	if cb == nil {
		cb = DeriveCodebook(observations)
	}

	groups, err := groupByProduct(observations)
	if err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(groups))
	for id := range groups {
		productIDs = append(productIDs, id)
	}
	slices.Sort(productIDs)

	rows := make([]*domain.FeatureRow, 0, len(observations))
	for _, id := range productIDs {
		seq := groups[id]
		for i, o := range seq {
			codes, err := cb.Encode(o)
			if err != nil {
				return nil, fmt.Errorf("encode %s %s: %w", o.ProductID, o.Date.Format("2006-01-02"), err)
			}
			row := &domain.FeatureRow{Observation: *o, Codes: codes}
			if complete := b.derive(row, seq, i); !complete && b.dropIncomplete {
				continue
			}
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows with complete history: %w", domain.ErrEmptyResultSet)
	}
	return rows, nil
}

// derive fills the lag/rolling columns of row from seq[:i].
// Returns false if any column lacked a full window of history.
func (b *Builder) derive(row *domain.FeatureRow, seq []*domain.Observation, i int) bool {
	complete := true
	for _, s := range b.series {
		for _, k := range s.Lags {
			if i >= k {
				row.SetDerived(s.LagColumn(k), ptr(s.Value(seq[i-k])))
				continue
			}
			complete = false
			row.SetDerived(s.LagColumn(k), b.missing())
		}
		for _, k := range s.Rollings {
			n := min(k, i)
			if n < k {
				complete = false
			}
			if n == 0 {
				row.SetDerived(s.RollingColumn(k), b.missing())
				continue
			}
			var sum float64
			for _, prev := range seq[i-n : i] {
				sum += s.Value(prev)
			}
			row.SetDerived(s.RollingColumn(k), ptr(sum/float64(n)))
		}
	}
	return complete
}

func (b *Builder) missing() *float64 {
	if b.fill == FillMissing {
		return nil
	}
	return ptr(0)
}

// checkSeries rejects series whose columns have no place in a feature row.
func (b *Builder) checkSeries() error {
	var probe domain.FeatureRow
	for _, s := range b.series {
		for _, k := range s.Lags {
			if !probe.SetDerived(s.LagColumn(k), nil) {
				return fmt.Errorf("column %s: %w", s.LagColumn(k), domain.ErrSchemaMismatch)
			}
		}
		for _, k := range s.Rollings {
			if !probe.SetDerived(s.RollingColumn(k), nil) {
				return fmt.Errorf("column %s: %w", s.RollingColumn(k), domain.ErrSchemaMismatch)
			}
		}
	}
	return nil
}

// groupByProduct splits observations per product, each sorted by date ascending.
func groupByProduct(observations []*domain.Observation) (map[string][]*domain.Observation, error) {
	seen := make(map[domain.Key]struct{}, len(observations))
	groups := make(map[string][]*domain.Observation)
	for _, o := range observations {
		k := o.Key()
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%s on %s: %w", o.ProductID, o.Date.Format("2006-01-02"), ErrDuplicateObservation)
		}
		seen[k] = struct{}{}
		groups[o.ProductID] = append(groups[o.ProductID], o)
	}
	for _, seq := range groups {
		slices.SortFunc(seq, func(a, b *domain.Observation) int {
			return a.Date.Compare(b.Date)
		})
	}
	return groups, nil
}

func ptr(v float64) *float64 {
	return &v
}

// ErrSchemaMismatch is returned when a requested column cannot be produced.
var ErrSchemaMismatch = domain.ErrSchemaMismatch
