package handlers

import (
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/errors"
	"seoul-dashboard/internal/models"
	"seoul-dashboard/internal/services"
)

var resultsTemplate = template.Must(template.New("results").Funcs(fragmentFuncs).Parse(`
<div id="results">
<section class="card">
<h2>{{.Summary.Category}} 전체 요약</h2>
<table class="modern-table">
<tbody>
<tr><th>총 매출</th><td>{{wonDecimal .Summary.TotalRevenue}}</td></tr>
<tr><th>점포수</th><td>{{count .Summary.StoreCount}}</td></tr>
</tbody>
</table>
<table class="modern-table">
<thead><tr><th>성별</th><th>매출</th><th>객단가</th></tr></thead>
<tbody>
{{range .Summary.Genders}}<tr><td>{{.Label}}</td><td>{{wonDecimal .Revenue}}</td><td>{{ticket .Ticket}}</td></tr>
{{end}}</tbody>
</table>
</section>
<section class="card">
<h2>구별 월매출과 임대료 ({{.Query.Area}}평)</h2>
<img src="/charts/choropleth.svg?{{.Link}}" alt="구별 월매출 - 임대료 지도">
<div class="chart-row">
<img src="/charts/top5.svg?{{.Link}}" alt="상위 5개 구">
<img src="/charts/bottom5.svg?{{.Link}}" alt="하위 5개 구">
</div>
<table class="modern-table">
<thead><tr><th>구</th><th>월평균 매출</th><th>평당 임대료</th><th>임대료</th><th>월매출 - 임대료</th><th>임대료 비율</th><th>객단가</th></tr></thead>
<tbody>
{{range .Comparison.Districts}}<tr>
<td>{{.District}}</td>
<td>{{won .MonthlyRevenue}}</td>
<td>{{won .RentPerArea}}</td>
<td>{{won .RentCost}}</td>
<td><strong>{{won .RevenueMinusRent}}</strong></td>
<td>{{percent .RentRatio}}</td>
<td>{{won .AvgTicket}}</td>
</tr>
{{end}}</tbody>
</table>
<a class="export-link" href="/api/export.xlsx?{{.Link}}">엑셀로 내려받기</a>
</section>
<section class="card">
<h2>업종 세부 분석</h2>
<div class="chart-row">
<img src="/charts/gender.svg?{{.Link}}" alt="성별 매출 비중">
<img src="/charts/age.svg?{{.Link}}" alt="연령대별 매출">
</div>
<div class="chart-row">
<img src="/charts/quarterly.svg?{{.Link}}" alt="분기별 매출">
<img src="/charts/weekday.svg?{{.Link}}" alt="요일별 매출">
<img src="/charts/hourly.svg?{{.Link}}" alt="시간대별 매출">
</div>
</section>
</div>`))

var districtTemplate = template.Must(template.New("district").Funcs(fragmentFuncs).Parse(`
<div id="district-card" class="card">
<h2>{{.District}}</h2>
<table class="modern-table">
<tbody>
<tr><th>월평균 매출</th><td>{{won .MonthlyRevenue}}</td></tr>
<tr><th>평당 임대료</th><td>{{won .RentPerArea}}</td></tr>
<tr><th>임대료</th><td>{{won .RentCost}}</td></tr>
<tr><th>월매출 - 임대료</th><td><strong>{{won .RevenueMinusRent}}</strong></td></tr>
<tr><th>임대료 비율</th><td>{{percent .RentRatio}}</td></tr>
<tr><th>객단가</th><td>{{won .AvgTicket}}</td></tr>
</tbody>
</table>
</div>`))

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<div id="notice" class="notice{{if .}} notice-visible{{end}}">{{.}}</div>`))

const (
	emptyResults  = `<div id="results"></div>`
	emptyDistrict = `<div id="district-card"></div>`

	msgNoMatch         = "입력한 업종과 일치하는 데이터가 없습니다."
	msgUnknownDistrict = "해당 구를 찾을 수 없습니다."
	msgNotLoaded       = "데이터를 불러오는 중입니다. 잠시 후 다시 시도해 주세요."
	msgBadRequest      = "요청을 처리할 수 없습니다."
)

// dashboardSignals mirrors the page's datastar signals.
type dashboardSignals struct {
	Category string      `json:"category"`
	Area     signalValue `json:"area"`
	District string      `json:"district"`
}

// signalValue accepts either a JSON number or a string, since a bound input
// sends whichever the browser produced.
type signalValue string

func (v *signalValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = signalValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = signalValue(n.String())
	return nil
}

type SSEHandlers struct {
	analytics *services.Analytics
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, defaults config.DashboardConfig, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		defaults:  defaults,
		logger:    logger,
	}
}

type resultsData struct {
	Query      query
	Link       template.URL
	Comparison models.DistrictComparison
	Summary    models.CategorySummary
}

func (h *SSEHandlers) renderResults(q query, comparison models.DistrictComparison, summary models.CategorySummary) (string, error) {
	var buf strings.Builder
	err := resultsTemplate.Execute(&buf, resultsData{
		Query:      q,
		Link:       template.URL(q.Encode()),
		Comparison: comparison,
		Summary:    summary,
	})
	return buf.String(), err
}

func renderNotice(msg string) string {
	var buf strings.Builder
	if err := noticeTemplate.Execute(&buf, msg); err != nil {
		return `<div id="notice" class="notice"></div>`
	}
	return buf.String()
}

func (h *SSEHandlers) readQuery(r *http.Request) (query, dashboardSignals, error) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return query{}, signals, errors.BadRequest("invalid signals")
	}

	area, err := parseArea(string(signals.Area), h.defaults.DefaultFloorArea)
	if err != nil {
		return query{}, signals, err
	}
	return query{Category: strings.TrimSpace(signals.Category), Area: area}, signals, nil
}

// noticeFor turns a failure into the message shown to the user.
func noticeFor(err error) string {
	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, services.ErrUnknownDistrict):
		return msgUnknownDistrict
	case stderrors.Is(err, services.ErrNotLoaded):
		return msgNotLoaded
	case stderrors.As(domainError(err), &appErr):
		if appErr.Code == errors.CodeNoMatch {
			return msgNoMatch
		}
		if appErr.Code == errors.CodeValidation {
			return "면적은 0보다 큰 숫자여야 합니다."
		}
	}
	return msgBadRequest
}

// HandleAnalysis runs both aggregations for the submitted category and area
// and replaces the results section.
func (h *SSEHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.readQuery(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.patchFailure(sse, err, emptyResults)
		return
	}

	comparison, err := h.analytics.CompareDistricts(r.Context(), q.Category, q.Area)
	if err != nil {
		h.patchFailure(sse, err, emptyResults)
		return
	}
	summary, err := h.analytics.BreakdownCategory(r.Context(), q.Category)
	if err != nil {
		h.patchFailure(sse, err, emptyResults)
		return
	}

	html, err := h.renderResults(q, comparison, summary)
	if err != nil {
		h.logger.Error("render results", "error", err)
		return
	}

	sse.PatchElements(renderNotice(""))
	sse.PatchElements(html)
	sse.PatchSignals([]byte(`{"analyzed": true}`))

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleDistrict shows the summary card for the searched district.
func (h *SSEHandlers) HandleDistrict(w http.ResponseWriter, r *http.Request) {
	q, signals, err := h.readQuery(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.patchFailure(sse, err, emptyDistrict)
		return
	}

	name := strings.TrimSpace(signals.District)
	if name == "" {
		h.patchFailure(sse, services.ErrUnknownDistrict, emptyDistrict)
		return
	}

	summary, err := h.analytics.District(r.Context(), q.Category, q.Area, name)
	if err != nil {
		h.patchFailure(sse, err, emptyDistrict)
		return
	}

	var buf strings.Builder
	if err := districtTemplate.Execute(&buf, summary); err != nil {
		h.logger.Error("render district card", "error", err)
		return
	}

	sse.PatchElements(renderNotice(""))
	sse.PatchElements(buf.String())

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patchFailure(sse *datastar.ServerSentEventGenerator, err error, clear string) {
	h.logger.Warn("analysis request failed", "error", err)
	sse.PatchElements(renderNotice(noticeFor(err)))
	sse.PatchElements(clear)
}
