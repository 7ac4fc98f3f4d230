package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/errors"
	"seoul-dashboard/internal/export"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/observability"
	"seoul-dashboard/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	analytics *services.Analytics
	geo       *geo.Store
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, boundaries *geo.Store, defaults config.DashboardConfig, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		geo:       boundaries,
		defaults:  defaults,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, domainError(err), observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.analytics.Categories()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, categories)
}

func (h *APIHandlers) HandleDistricts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	comparison, err := h.analytics.CompareDistricts(r.Context(), q.Category, q.Area)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, comparison)
}

func (h *APIHandlers) HandleDistrict(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		h.fail(w, r, errors.Validation("district name is required"))
		return
	}

	summary, err := h.analytics.District(r.Context(), q.Category, q.Area, name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, summary)
}

func (h *APIHandlers) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summary, err := h.analytics.BreakdownCategory(r.Context(), q.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, summary)
}

// HandleExport streams both summaries as an xlsx download.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.defaults)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	comparison, err := h.analytics.CompareDistricts(r.Context(), q.Category, q.Area)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.analytics.BreakdownCategory(r.Context(), q.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Workbook(&buf, comparison, summary); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to build workbook"))
		return
	}

	filename := fmt.Sprintf("%s_%g평.xlsx", q.Category, q.Area)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write workbook", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, dataErr := h.analytics.Categories()
	_, geoErr := h.geo.Collection()

	healthData := map[string]any{
		"status":           "healthy",
		"timestamp":        time.Now().Format(time.RFC3339),
		"version":          version,
		"dataset_loaded":   dataErr == nil,
		"boundaries_ready": geoErr == nil,
	}
	if dataErr != nil || geoErr != nil {
		healthData["status"] = "degraded"
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()
	if fetched := h.geo.FetchedAt(); !fetched.IsZero() {
		stats["boundaries_fetched_at"] = fetched
	}
	errors.WriteSuccess(w, stats)
}
