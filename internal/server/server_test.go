package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	testdata := filepath.Join("..", "services", "testdata")
	analytics := services.NewAnalytics(config.DataConfig{
		SalesFile:     filepath.Join(testdata, "sales.csv"),
		SalesEncoding: "utf-8",
		RentFile:      filepath.Join(testdata, "rent.csv"),
		RentEncoding:  "cp949",
		ReferenceYear: 2021,
	}, quietLogger())
	if err := analytics.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	boundaries := geo.NewStore(config.GeoConfig{Source: "unused", FetchTimeout: time.Second}, quietLogger())
	srv, err := NewServer(analytics, boundaries, config.DashboardConfig{DefaultCategory: "커피", DefaultFloorArea: 20}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		target     string
		wantStatus int
		wantType   string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/api/categories", http.StatusOK, "application/json"},
		{"/api/districts", http.StatusOK, "application/json"},
		{"/api/breakdown", http.StatusOK, "application/json"},
		{"/charts/quarterly.svg", http.StatusOK, "image/svg+xml"},
		{"/charts/choropleth.svg", http.StatusServiceUnavailable, "application/json"},
		{"/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantType != "" && !strings.HasPrefix(w.Header().Get("Content-Type"), tt.wantType) {
				t.Errorf("content-type = %q, want %q", w.Header().Get("Content-Type"), tt.wantType)
			}
		})
	}
}

func TestServer_DashboardListsCategories(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(w.Body.String(), "<li>한식음식점</li>") {
		t.Error("dashboard should list loaded categories")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("cache-control = %q, the category list must follow reloads", cc)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/categories", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestGracefulServer_RunsHooksOnCancel(t *testing.T) {
	httpServer := &http.Server{
		Addr:    freeAddr(t),
		Handler: http.NotFoundHandler(),
	}
	gs := NewGracefulServer(httpServer, quietLogger(), config.ServerConfig{ShutdownTimeout: 2 * time.Second})

	var ran atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	failing := errors.New("close failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return failing
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, failing) {
			t.Errorf("Run() error = %v, want hook failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if ran.Load() != 2 {
		t.Errorf("hooks run = %d, want 2", ran.Load())
	}
}

func TestGracefulServer_ListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	httpServer := &http.Server{Addr: l.Addr().String(), Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, quietLogger(), config.ServerConfig{ShutdownTimeout: time.Second})

	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() on a busy port should fail")
	}
}
