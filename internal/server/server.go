package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/handlers"
	"seoul-dashboard/internal/middleware"
	"seoul-dashboard/internal/services"
	"seoul-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	noStore       = "no-store"
)

type Server struct {
	analytics     *services.Analytics
	mux           *http.ServeMux
	logger        *slog.Logger
	defaults      config.DashboardConfig
	apiHandlers   *handlers.APIHandlers
	sseHandlers   *handlers.SSEHandlers
	chartHandlers *handlers.ChartHandlers
}

func NewServer(analytics *services.Analytics, boundaries *geo.Store, defaults config.DashboardConfig, logger *slog.Logger) (*Server, error) {
	s := &Server{
		analytics:     analytics,
		mux:           http.NewServeMux(),
		logger:        logger,
		defaults:      defaults,
		apiHandlers:   handlers.NewAPIHandlers(analytics, boundaries, defaults, logger),
		sseHandlers:   handlers.NewSSEHandlers(analytics, defaults, logger),
		chartHandlers: handlers.NewChartHandlers(analytics, boundaries, defaults, logger),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	compress, err := middleware.Compress()
	if err != nil {
		return err
	}
	gzip := func(h http.HandlerFunc) http.Handler { return compress(h) }

	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.Handle("GET /api/categories", gzip(s.apiHandlers.HandleCategories))
	s.mux.Handle("GET /api/districts", gzip(s.apiHandlers.HandleDistricts))
	s.mux.Handle("GET /api/district", gzip(s.apiHandlers.HandleDistrict))
	s.mux.Handle("GET /api/breakdown", gzip(s.apiHandlers.HandleBreakdown))
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExport)

	// Server-rendered charts
	s.mux.Handle("GET /charts/choropleth.svg", gzip(s.chartHandlers.HandleChoropleth))
	s.mux.Handle("GET /charts/top5.svg", gzip(s.chartHandlers.HandleTop5))
	s.mux.Handle("GET /charts/bottom5.svg", gzip(s.chartHandlers.HandleBottom5))
	s.mux.Handle("GET /charts/gender.svg", gzip(s.chartHandlers.HandleGender))
	s.mux.Handle("GET /charts/quarterly.svg", gzip(s.chartHandlers.HandleQuarterly))
	s.mux.Handle("GET /charts/weekday.svg", gzip(s.chartHandlers.HandleWeekday))
	s.mux.Handle("GET /charts/hourly.svg", gzip(s.chartHandlers.HandleHourly))
	s.mux.Handle("GET /charts/age.svg", gzip(s.chartHandlers.HandleAge))

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/analysis", s.sseHandlers.HandleAnalysis)
	s.mux.HandleFunc("GET /sse/district", s.sseHandlers.HandleDistrict)
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	// The category list is optional; the page still works before the first load.
	categories, _ := s.analytics.Categories()

	// The category list changes when the data files are reloaded.
	w.Header().Set("Cache-Control", noStore)
	err := templates.Dashboard(templates.DashboardProps{
		DefaultCategory:  s.defaults.DefaultCategory,
		DefaultFloorArea: s.defaults.DefaultFloorArea,
		Categories:       categories,
	}).Render(ctx, w)
	if err != nil {
		s.logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
