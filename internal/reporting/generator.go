package reporting

import (
	"context"
	"fmt"
	"time"

	"pricing-engine/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	reader storage.SalesReader
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(reader storage.SalesReader) *Generator {
	return &Generator{
		reader: reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate reads the joined sales rows and builds the report.
// Returns storage.ErrEmptyResultSet when no pipeline run has been written.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	rows, err := g.reader.ReadSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sales: %w", err)
	}

	recs, ok := Recommend(rows)
	r := &Report{
		GeneratedAt:     g.now(),
		Summary:         Summarize(rows),
		Funnel:          ConversionFunnel(rows),
		Recommendations: recs,
		Alerts:          Alerts(rows),
	}
	if !ok {
		r.Message = NoPredictionsMessage
	}
	return r, nil
}
