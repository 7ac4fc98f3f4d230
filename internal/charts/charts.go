// Package charts renders dashboard figures as SVG with gonum/plot.
// Every renderer is a pure function of its inputs, so identical inputs
// produce identical bytes.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"seoul-dashboard/internal/models"
)

const (
	defaultWidth  = 16 * vg.Centimeter
	defaultHeight = 10 * vg.Centimeter
	barWidth      = vg.Length(18)
)

var (
	barColor  = color.RGBA{R: 99, G: 110, B: 250, A: 255}
	lineColor = color.RGBA{R: 239, G: 85, B: 59, A: 255}
	meanColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// finite maps undefined values to 0; the plotters reject NaN.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func ticketValue(t decimal.NullDecimal) float64 {
	if !t.Valid {
		return 0
	}
	return t.Decimal.InexactFloat64()
}

func newPlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func bars(values plotter.Values, clr color.Color) (*plotter.BarChart, error) {
	b, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	b.Color = clr
	b.LineStyle.Width = vg.Length(0)
	return b, nil
}

func linePoints(values []float64, clr color.Color) (*plotter.Line, *plotter.Scatter, error) {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	l, s, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, nil, fmt.Errorf("line chart: %w", err)
	}
	l.Color = clr
	l.Width = vg.Points(2)
	s.Color = clr
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	return l, s, nil
}

func writeSVG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// writeStacked draws plots top to bottom on one canvas with aligned axes.
func writeStacked(w io.Writer, plots []*plot.Plot, width, height vg.Length) error {
	rows := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		rows[i] = []*plot.Plot{p}
	}

	c := vgsvg.New(width, height)
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 2 * vg.Millimeter,
	}

	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	return nil
}

// Series renders one labeled series as bars with the same values traced as
// a line on top.
func Series(w io.Writer, title string, amounts []models.LabeledAmount) error {
	p := newPlot(title, "매출 (원)")

	if len(amounts) > 0 {
		labels := make([]string, len(amounts))
		values := make(plotter.Values, len(amounts))
		for i, a := range amounts {
			labels[i] = a.Label
			values[i] = finite(a.Revenue.InexactFloat64())
		}

		b, err := bars(values, barColor)
		if err != nil {
			return err
		}
		l, s, err := linePoints(values, lineColor)
		if err != nil {
			return err
		}
		p.Add(b, l, s)
		p.NominalX(labels...)
	}

	return writeSVG(w, p, defaultWidth, defaultHeight)
}

// RankedDistricts renders revenue-minus-rent bars with a dashed mean
// reference line above an average-ticket line panel.
func RankedDistricts(w io.Writer, title string, districts []models.DistrictSummary, mean models.Metric) error {
	top := newPlot(title, "월매출 - 임대료 (원)")
	bottom := newPlot("", "객단가 (원)")

	if len(districts) > 0 {
		labels := make([]string, len(districts))
		margins := make(plotter.Values, len(districts))
		tickets := make([]float64, len(districts))
		for i, d := range districts {
			labels[i] = d.District
			margins[i] = d.RevenueMinusRent.OrZero()
			tickets[i] = d.AvgTicket.OrZero()
		}

		b, err := bars(margins, barColor)
		if err != nil {
			return err
		}
		top.Add(b)
		top.Legend.Add("월매출 - 임대료", b)

		if mean.Valid() {
			m := mean.Float()
			ref := plotter.NewFunction(func(float64) float64 { return m })
			ref.Color = meanColor
			ref.Width = vg.Points(1)
			ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			top.Add(ref)
			top.Legend.Add("평균", ref)
		}
		top.NominalX(labels...)
		top.Legend.Top = true

		l, s, err := linePoints(tickets, lineColor)
		if err != nil {
			return err
		}
		bottom.Add(l, s)
		bottom.NominalX(labels...)
	}

	return writeStacked(w, []*plot.Plot{top, bottom}, defaultWidth, 1.5*defaultHeight)
}

// AgeBrackets renders revenue bars per age bracket above a ticket line.
func AgeBrackets(w io.Writer, brackets []models.LabeledTicket) error {
	top := newPlot("연령대별 매출", "매출 (원)")
	bottom := newPlot("", "객단가 (원)")

	if len(brackets) > 0 {
		labels := make([]string, len(brackets))
		revenue := make(plotter.Values, len(brackets))
		tickets := make([]float64, len(brackets))
		for i, b := range brackets {
			labels[i] = b.Label
			revenue[i] = finite(b.Revenue.InexactFloat64())
			tickets[i] = finite(ticketValue(b.Ticket))
		}

		b, err := bars(revenue, barColor)
		if err != nil {
			return err
		}
		top.Add(b)
		top.NominalX(labels...)

		l, s, err := linePoints(tickets, lineColor)
		if err != nil {
			return err
		}
		bottom.Add(l, s)
		bottom.NominalX(labels...)
	}

	return writeStacked(w, []*plot.Plot{top, bottom}, defaultWidth, 1.5*defaultHeight)
}

// GenderPie renders revenue share per gender as filled wedges.
func GenderPie(w io.Writer, genders []models.LabeledTicket) error {
	p := plot.New()
	p.Title.Text = "성별 매출 비중"
	p.Title.TextStyle.Font.Size = vg.Points(13)
	p.HideAxes()
	p.X.Min, p.X.Max = -1.3, 1.3
	p.Y.Min, p.Y.Max = -1.3, 1.3

	total := models.SumTickets(genders)
	if total.IsPositive() {
		var (
			start    float64
			labelXYs plotter.XYs
			labels   []string
		)
		for i, g := range genders {
			share := g.Revenue.Div(total).InexactFloat64()
			if share <= 0 {
				continue
			}
			end := start + share*2*math.Pi

			wedge, err := plotter.NewPolygon(wedgePoints(start, end))
			if err != nil {
				return fmt.Errorf("pie wedge: %w", err)
			}
			wedge.Color = plotutil.Color(i)
			wedge.LineStyle.Color = color.White
			wedge.LineStyle.Width = vg.Points(1)
			p.Add(wedge)
			p.Legend.Add(g.Label, wedge)

			mid := (start + end) / 2
			labelXYs = append(labelXYs, plotter.XY{X: 0.6 * math.Cos(mid), Y: 0.6 * math.Sin(mid)})
			labels = append(labels, fmt.Sprintf("%.1f%%", share*100))
			start = end
		}

		if len(labels) > 0 {
			pct, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
			if err != nil {
				return fmt.Errorf("pie labels: %w", err)
			}
			for i := range pct.TextStyle {
				pct.TextStyle[i].XAlign = draw.XCenter
				pct.TextStyle[i].YAlign = draw.YCenter
				pct.TextStyle[i].Color = color.White
			}
			p.Add(pct)
		}
	}

	return writeSVG(w, p, defaultHeight, defaultHeight)
}

// wedgePoints approximates the unit-circle sector between two angles.
func wedgePoints(start, end float64) plotter.XYs {
	const step = math.Pi / 90
	pts := plotter.XYs{{X: 0, Y: 0}}
	for a := start; a < end; a += step {
		pts = append(pts, plotter.XY{X: math.Cos(a), Y: math.Sin(a)})
	}
	pts = append(pts, plotter.XY{X: math.Cos(end), Y: math.Sin(end)})
	return pts
}
