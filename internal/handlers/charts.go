package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"seoul-dashboard/internal/charts"
	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/errors"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/models"
	"seoul-dashboard/internal/observability"
	"seoul-dashboard/internal/services"
)

const (
	rankedLimit = 5
	noStore     = "no-store"
)

// ChartHandlers serve server-rendered SVG figures.
type ChartHandlers struct {
	analytics *services.Analytics
	geo       *geo.Store
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewChartHandlers(analytics *services.Analytics, boundaries *geo.Store, defaults config.DashboardConfig, logger *slog.Logger) *ChartHandlers {
	return &ChartHandlers{
		analytics: analytics,
		geo:       boundaries,
		defaults:  defaults,
		logger:    logger,
	}
}

// serveSVG renders into a buffer first so a failed render still gets a
// JSON error instead of a truncated image.
func (h *ChartHandlers) serveSVG(w http.ResponseWriter, r *http.Request, render func(io.Writer) error) {
	_, span := observability.StartSpan(r.Context(), "chart.render")
	defer span.End(h.logger)
	span.SetAttr("path", r.URL.Path)

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		span.SetError(err)
		errors.WriteError(w, h.logger, domainError(err), observability.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	// The dataset can be hot reloaded, so browsers must not reuse old charts.
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write chart", "path", r.URL.Path, "error", err)
	}
}

func (h *ChartHandlers) comparison(r *http.Request) (models.DistrictComparison, error) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		return models.DistrictComparison{}, err
	}
	return h.analytics.CompareDistricts(r.Context(), q.Category, q.Area)
}

func (h *ChartHandlers) breakdown(r *http.Request) (models.CategorySummary, error) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		return models.CategorySummary{}, err
	}
	return h.analytics.BreakdownCategory(r.Context(), q.Category)
}

func (h *ChartHandlers) HandleChoropleth(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		fc, err := h.geo.Collection()
		if err != nil {
			return err
		}
		c, err := h.comparison(r)
		if err != nil {
			return err
		}
		return charts.Choropleth(out, fc, c)
	})
}

func (h *ChartHandlers) HandleTop5(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		c, err := h.comparison(r)
		if err != nil {
			return err
		}
		return charts.RankedDistricts(out, "월매출 - 임대료 상위 5개 구", c.Top(rankedLimit), c.MeanRevenueMinusRent())
	})
}

func (h *ChartHandlers) HandleBottom5(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		c, err := h.comparison(r)
		if err != nil {
			return err
		}
		return charts.RankedDistricts(out, "월매출 - 임대료 하위 5개 구", c.Bottom(rankedLimit), c.MeanRevenueMinusRent())
	})
}

func (h *ChartHandlers) HandleGender(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		s, err := h.breakdown(r)
		if err != nil {
			return err
		}
		return charts.GenderPie(out, s.Genders)
	})
}

func (h *ChartHandlers) HandleQuarterly(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		s, err := h.breakdown(r)
		if err != nil {
			return err
		}
		return charts.Series(out, "분기별 매출", s.Quarters)
	})
}

func (h *ChartHandlers) HandleWeekday(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		s, err := h.breakdown(r)
		if err != nil {
			return err
		}
		return charts.Series(out, "요일별 매출", s.Weekdays)
	})
}

func (h *ChartHandlers) HandleHourly(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		s, err := h.breakdown(r)
		if err != nil {
			return err
		}
		return charts.Series(out, "시간대별 매출", s.HourBands)
	})
}

func (h *ChartHandlers) HandleAge(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(out io.Writer) error {
		s, err := h.breakdown(r)
		if err != nil {
			return err
		}
		return charts.AgeBrackets(out, s.AgeBrackets)
	})
}
