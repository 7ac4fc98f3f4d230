package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/services"
)

func sseRequest(target string, signals map[string]any) *http.Request {
	raw, _ := json.Marshal(signals)
	return httptest.NewRequest(http.MethodGet, target+"?datastar="+urlEscape(string(raw)), nil)
}

func newTestSSE(t testing.TB) *SSEHandlers {
	return NewSSEHandlers(createTestAnalytics(t), testDefaults, testLogger())
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, testDefaults, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleAnalysis(t *testing.T) {
	handlers := newTestSSE(t)

	req := sseRequest("/sse/analysis", map[string]any{"category": "커피", "area": 20})
	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	body := w.Body.String()
	expected := []string{
		`id="results"`,
		"<table",
		"29,400,000원",
		"종로구",
		"/charts/choropleth.svg?area=20&amp;category=",
		"/charts/hourly.svg",
		"/api/export.xlsx",
		"analyzed",
	}
	for _, content := range expected {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleAnalysis_AreaAsString(t *testing.T) {
	handlers := newTestSSE(t)

	req := sseRequest("/sse/analysis", map[string]any{"category": "커피", "area": "33"})
	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, req)

	if !strings.Contains(w.Body.String(), "33평") {
		t.Error("string area signal should be accepted")
	}
}

func TestSSEHandlers_HandleAnalysis_Failures(t *testing.T) {
	handlers := newTestSSE(t)

	tests := []struct {
		name    string
		signals map[string]any
		notice  string
	}{
		{"no matching rows", map[string]any{"category": "피자", "area": 20}, msgNoMatch},
		{"invalid area", map[string]any{"category": "커피", "area": -1}, "면적은"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleAnalysis(w, sseRequest("/sse/analysis", tt.signals))

			body := w.Body.String()
			if !strings.Contains(body, tt.notice) {
				t.Errorf("expected notice %q in %s", tt.notice, body)
			}
			if strings.Contains(body, "<table") {
				t.Error("failed analysis should not render tables")
			}
		})
	}
}

func TestSSEHandlers_HandleAnalysis_NotLoaded(t *testing.T) {
	handlers := NewSSEHandlers(services.NewAnalytics(config.DataConfig{}, testLogger()), testDefaults, testLogger())

	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, sseRequest("/sse/analysis", map[string]any{"category": "커피", "area": 20}))

	if !strings.Contains(w.Body.String(), msgNotLoaded) {
		t.Error("expected not-loaded notice")
	}
}

func TestSSEHandlers_HandleDistrict(t *testing.T) {
	handlers := newTestSSE(t)

	w := httptest.NewRecorder()
	handlers.HandleDistrict(w, sseRequest("/sse/district", map[string]any{
		"category": "커피", "area": 20, "district": "강남구",
	}))

	body := w.Body.String()
	for _, content := range []string{`id="district-card"`, "강남구", "-2,650,000원"} {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}

	w = httptest.NewRecorder()
	handlers.HandleDistrict(w, sseRequest("/sse/district", map[string]any{
		"category": "커피", "area": 20, "district": "해운대구",
	}))
	if !strings.Contains(w.Body.String(), msgUnknownDistrict) {
		t.Error("expected unknown district notice")
	}

	w = httptest.NewRecorder()
	handlers.HandleDistrict(w, sseRequest("/sse/district", map[string]any{"category": "커피", "area": 20}))
	if !strings.Contains(w.Body.String(), msgUnknownDistrict) {
		t.Error("empty district name should report unknown district")
	}
}

func TestSignalValue(t *testing.T) {
	var s dashboardSignals
	if err := json.Unmarshal([]byte(`{"area": 12.5}`), &s); err != nil || s.Area != "12.5" {
		t.Errorf("number signal = %q, %v", s.Area, err)
	}
	if err := json.Unmarshal([]byte(`{"area": "7"}`), &s); err != nil || s.Area != "7" {
		t.Errorf("string signal = %q, %v", s.Area, err)
	}
	if err := json.Unmarshal([]byte(`{"area": true}`), &s); err == nil {
		t.Error("boolean area should fail")
	}
}

func TestRenderNotice(t *testing.T) {
	if got := renderNotice(""); strings.Contains(got, "notice-visible") {
		t.Errorf("empty notice should be hidden: %s", got)
	}
	if got := renderNotice("<b>x</b>"); !strings.Contains(got, "&lt;b&gt;") {
		t.Errorf("notice should be escaped: %s", got)
	}
}

func BenchmarkSSEHandlers_HandleAnalysis(b *testing.B) {
	handlers := newTestSSE(b)

	for b.Loop() {
		w := httptest.NewRecorder()
		handlers.HandleAnalysis(w, sseRequest("/sse/analysis", map[string]any{"category": "커피", "area": 20}))
	}
}
