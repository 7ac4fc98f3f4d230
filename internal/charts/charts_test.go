package charts

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/models"
)

const boundaries = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"name": "강남구"},
   "geometry": {"type": "Polygon", "coordinates": [[[127.0, 37.5], [127.1, 37.5], [127.1, 37.4], [127.0, 37.5]]]}},
  {"type": "Feature", "properties": {"name": "종로구"},
   "geometry": {"type": "MultiPolygon", "coordinates": [[[[126.9, 37.6], [127.0, 37.6], [127.0, 37.55], [126.9, 37.6]]]]}},
  {"type": "Feature", "properties": {"name": "중랑구"},
   "geometry": {"type": "Polygon", "coordinates": [[[127.08, 37.6], [127.1, 37.6], [127.1, 37.58], [127.08, 37.6]]]}}
]}`

func comparison() models.DistrictComparison {
	return models.DistrictComparison{
		Category:  "커피",
		FloorArea: 20,
		Districts: []models.DistrictSummary{
			{District: "종로구", RevenueMinusRent: -1000000, AvgTicket: 8000, Lat: 37.58, Lon: 126.95},
			{District: "강남구", RevenueMinusRent: 2500000, AvgTicket: 12000, Lat: 37.47, Lon: 127.05},
			{District: "마포구", RevenueMinusRent: models.Undefined(), AvgTicket: models.Undefined(), Lat: models.Undefined(), Lon: models.Undefined()},
		},
	}
}

func amounts(labels ...string) []models.LabeledAmount {
	out := make([]models.LabeledAmount, len(labels))
	for i, l := range labels {
		out[i] = models.LabeledAmount{Label: l, Revenue: decimal.NewFromInt(int64(i+1) * 1000000)}
	}
	return out
}

func tickets() []models.LabeledTicket {
	return []models.LabeledTicket{
		{Label: "남성", Revenue: decimal.NewFromInt(6000000), Ticket: decimal.NewNullDecimal(decimal.NewFromInt(9000))},
		{Label: "여성", Revenue: decimal.NewFromInt(4000000), Ticket: decimal.NullDecimal{}},
	}
}

func render(t *testing.T, fn func(io.Writer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	out := buf.String()
	require.Contains(t, out, "<svg")
	return out
}

func TestRenderers(t *testing.T) {
	fc, err := geo.Parse(strings.NewReader(boundaries))
	require.NoError(t, err)

	tests := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{"series", func(w io.Writer) error {
			return Series(w, "분기별 매출", amounts("1분기", "2분기", "3분기", "4분기"))
		}},
		{"series empty", func(w io.Writer) error { return Series(w, "빈 차트", nil) }},
		{"ranked", func(w io.Writer) error {
			c := comparison()
			return RankedDistricts(w, "상위 5개 구", c.Top(5), c.MeanRevenueMinusRent())
		}},
		{"ranked undefined mean", func(w io.Writer) error {
			return RankedDistricts(w, "하위 5개 구", nil, models.Undefined())
		}},
		{"age brackets with undefined ticket", func(w io.Writer) error { return AgeBrackets(w, tickets()) }},
		{"gender pie", func(w io.Writer) error { return GenderPie(w, tickets()) }},
		{"gender pie zero revenue", func(w io.Writer) error {
			return GenderPie(w, []models.LabeledTicket{{Label: "남성"}, {Label: "여성"}})
		}},
		{"choropleth", func(w io.Writer) error { return Choropleth(w, fc, comparison()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			render(t, tt.fn)
		})
	}
}

func TestRenderers_Deterministic(t *testing.T) {
	fc, err := geo.Parse(strings.NewReader(boundaries))
	require.NoError(t, err)

	renderers := map[string]func(io.Writer) error{
		"series":     func(w io.Writer) error { return Series(w, "요일별 매출", amounts("월", "화", "수")) },
		"pie":        func(w io.Writer) error { return GenderPie(w, tickets()) },
		"choropleth": func(w io.Writer) error { return Choropleth(w, fc, comparison()) },
		"ranked": func(w io.Writer) error {
			c := comparison()
			return RankedDistricts(w, "상위", c.Top(5), c.MeanRevenueMinusRent())
		},
	}

	for name, fn := range renderers {
		first := render(t, fn)
		second := render(t, fn)
		assert.Equal(t, first, second, "%s output must be identical across renders", name)
	}
}

func TestChoropleth_UnsupportedGeometry(t *testing.T) {
	fc, err := geo.Parse(strings.NewReader(`{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"name": "x"}, "geometry": {"type": "Point", "coordinates": [1, 2]}}]}`))
	require.NoError(t, err)

	err = Choropleth(io.Discard, fc, comparison())
	assert.Error(t, err)
}

func TestBlues(t *testing.T) {
	scale, err := blues(0, 100)
	require.NoError(t, err)

	light, dark := scale(0), scale(100)
	assert.NotEqual(t, light, dark)
	assert.Equal(t, dark, scale(1000), "values past the range clamp to the end")

	flat, err := blues(5, 5)
	require.NoError(t, err)
	assert.Equal(t, dark, flat(5))
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, finite(models.Undefined().Float()))
	assert.Equal(t, 3.5, finite(3.5))
	assert.Equal(t, 0.0, ticketValue(decimal.NullDecimal{}))
}
