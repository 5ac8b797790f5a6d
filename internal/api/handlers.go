package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pricing-engine/internal/domain"
	"pricing-engine/internal/logging"
	"pricing-engine/internal/reporting"
	"pricing-engine/internal/storage"
)

// NoDataMessage is returned instead of an error before the first pipeline run.
const NoDataMessage = "No data available yet. Run the daily pipeline first."

const dateLayout = "2006-01-02"

// Handler serves the consumer read model.
type Handler struct {
	reader storage.SalesReader
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a handler over reader.
func NewHandler(reader storage.SalesReader, logger *zap.Logger) *Handler {
	logger = logging.OrNop(logger)
	return &Handler{
		reader: reader,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SalesRow is the JSON shape of one joined sales row.
type SalesRow struct {
	Date           string   `json:"date"`
	ProductID      string   `json:"product_id"`
	Brand          string   `json:"brand"`
	StorageVariant string   `json:"storage_variant"`
	Category       string   `json:"category"`
	UnitsSold      int      `json:"units_sold"`
	Revenue        int      `json:"revenue"`
	Stock          int      `json:"stock"`
	Discount       int      `json:"discount"`
	IsFestival     bool     `json:"is_festival"`
	Views          int      `json:"views"`
	Clicks         int      `json:"clicks"`
	AddToCart      int      `json:"add_to_cart"`
	Purchases      int      `json:"purchases"`
	BounceRate     float64  `json:"bounce_rate"`
	FlipkartPrice  int      `json:"flipkart_price"`
	AmazonPrice    int      `json:"amazon_price"`
	MyntraPrice    int      `json:"myntra_price"`
	PredictedPrice *float64 `json:"predicted_price"`
}

// SalesResponse is returned by GET /api/sales.
type SalesResponse struct {
	Rows    []SalesRow `json:"rows"`
	Count   int        `json:"count"`
	Message string     `json:"message,omitempty"`
}

// GetSales returns the joined rows, optionally filtered by product, from and to.
// GET /api/sales?product=M100&from=2024-10-01&to=2024-10-31
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	rows, ok := h.readSales(w, r)
	if !ok {
		return
	}
	if rows == nil {
		respondJSON(w, http.StatusOK, SalesResponse{Rows: []SalesRow{}, Message: NoDataMessage})
		return
	}

	product := q.Get("product")
	out := make([]SalesRow, 0, len(rows))
	for _, s := range rows {
		if product != "" && s.ProductID != product {
			continue
		}
		if !from.IsZero() && s.Date.Before(from) {
			continue
		}
		if !to.IsZero() && s.Date.After(to) {
			continue
		}
		out = append(out, toSalesRow(s))
	}
	respondJSON(w, http.StatusOK, SalesResponse{Rows: out, Count: len(out)})
}

// SummaryResponse is returned by GET /api/summary.
type SummaryResponse struct {
	Rows           int      `json:"rows"`
	Products       int      `json:"products"`
	DateFrom       string   `json:"date_from,omitempty"`
	DateTo         string   `json:"date_to,omitempty"`
	TotalRevenue   int64    `json:"total_revenue"`
	AvgUnitsSold   float64  `json:"avg_units_sold"`
	TotalViews     int64    `json:"total_views"`
	TotalPurchases int64    `json:"total_purchases"`
	Clicks         int64    `json:"clicks"`
	AddToCart      int64    `json:"add_to_cart"`
	BounceRate     *float64 `json:"bounce_rate"`
	Message        string   `json:"message,omitempty"`
}

// GetSummary returns the KPI summary and conversion funnel.
// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readSales(w, r)
	if !ok {
		return
	}
	if rows == nil {
		respondJSON(w, http.StatusOK, SummaryResponse{Message: NoDataMessage})
		return
	}

	s := reporting.Summarize(rows)
	f := reporting.ConversionFunnel(rows)
	respondJSON(w, http.StatusOK, SummaryResponse{
		Rows:           s.Rows,
		Products:       s.Products,
		DateFrom:       s.DateFrom.Format(dateLayout),
		DateTo:         s.DateTo.Format(dateLayout),
		TotalRevenue:   s.TotalRevenue,
		AvgUnitsSold:   s.AvgUnitsSold,
		TotalViews:     s.TotalViews,
		TotalPurchases: s.TotalPurchases,
		Clicks:         f.Clicks,
		AddToCart:      f.AddToCart,
		BounceRate:     f.BounceRate,
	})
}

// Recommendation is the JSON shape of one product recommendation.
type Recommendation struct {
	ProductID          string   `json:"product_id"`
	AvgPredictedPrice  *float64 `json:"avg_predicted_price"`
	AvgCompetitorPrice float64  `json:"avg_competitor_price"`
	AvgUnitsSold       float64  `json:"avg_units_sold"`
	AvgStock           float64  `json:"avg_stock"`
	Recommendation     string   `json:"recommendation"`
}

// Alert is the JSON shape of one alert.
type Alert struct {
	Kind      string  `json:"kind"`
	ProductID string  `json:"product_id"`
	Value     float64 `json:"value"`
	Message   string  `json:"message"`
}

// RecommendationsResponse is returned by GET /api/recommendations.
type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Alerts          []Alert          `json:"alerts"`
	Message         string           `json:"message,omitempty"`
}

// GetRecommendations returns per-product price recommendations and alerts.
// GET /api/recommendations[?format=csv]
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readSales(w, r)
	if !ok {
		return
	}
	if rows == nil {
		respondJSON(w, http.StatusOK, RecommendationsResponse{
			Recommendations: []Recommendation{},
			Alerts:          []Alert{},
			Message:         NoDataMessage,
		})
		return
	}

	recs, available := reporting.Recommend(rows)
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(reporting.RenderCSV(recs)))
		return
	}

	resp := RecommendationsResponse{
		Recommendations: make([]Recommendation, 0, len(recs)),
		Alerts:          []Alert{},
	}
	if !available {
		resp.Message = reporting.NoPredictionsMessage
	}
	for _, rec := range recs {
		resp.Recommendations = append(resp.Recommendations, Recommendation{
			ProductID:          rec.ProductID,
			AvgPredictedPrice:  rec.AvgPredictedPrice,
			AvgCompetitorPrice: rec.AvgCompetitorPrice,
			AvgUnitsSold:       rec.AvgUnitsSold,
			AvgStock:           rec.AvgStock,
			Recommendation:     string(rec.Action),
		})
	}
	for _, a := range reporting.Alerts(rows) {
		resp.Alerts = append(resp.Alerts, Alert{
			Kind:      string(a.Kind),
			ProductID: a.ProductID,
			Value:     a.Value,
			Message:   a.Message,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// readSales returns nil rows with ok=true when nothing has been written yet.
// On other errors it writes the response and returns ok=false.
func (h *Handler) readSales(w http.ResponseWriter, r *http.Request) ([]*domain.SalesRow, bool) {
	rows, err := h.reader.ReadSales(r.Context())
	switch {
	case err == nil:
		return rows, true
	case errors.Is(err, storage.ErrEmptyResultSet):
		return nil, true
	case errors.Is(err, storage.ErrDataSourceUnavailable):
		h.logger.Warn("sales store unavailable", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "data source unavailable")
	default:
		h.logger.Error("read sales failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read sales data")
	}
	return nil, false
}

func toSalesRow(s *domain.SalesRow) SalesRow {
	return SalesRow{
		Date:           s.Date.Format(dateLayout),
		ProductID:      s.ProductID,
		Brand:          s.Brand,
		StorageVariant: s.StorageVariant,
		Category:       s.Category,
		UnitsSold:      s.UnitsSold,
		Revenue:        s.Revenue,
		Stock:          s.Stock,
		Discount:       s.Discount,
		IsFestival:     s.IsFestival,
		Views:          s.Views,
		Clicks:         s.Clicks,
		AddToCart:      s.AddToCart,
		Purchases:      s.Purchases,
		BounceRate:     s.BounceRate,
		FlipkartPrice:  s.FlipkartPrice,
		AmazonPrice:    s.AmazonPrice,
		MyntraPrice:    s.MyntraPrice,
		PredictedPrice: s.PredictedPrice,
	}
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, v)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
