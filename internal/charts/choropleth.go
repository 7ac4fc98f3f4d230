package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/models"
)

var noDataColor = color.RGBA{R: 210, G: 210, B: 210, A: 255}

// blues returns a sequential scale mapping [lo, hi] onto light-to-dark blue.
func blues(lo, hi float64) (func(float64) color.Color, error) {
	pal, err := brewer.GetPalette(brewer.TypeSequential, "Blues", 9)
	if err != nil {
		return nil, fmt.Errorf("blues palette: %w", err)
	}
	colors := pal.Colors()
	last := len(colors) - 1

	return func(v float64) color.Color {
		if hi <= lo {
			return colors[last]
		}
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		return colors[max(0, min(last, idx))]
	}, nil
}

// Choropleth fills each boundary feature by its district's revenue minus
// rent. Features without a matching district, or whose value is undefined,
// are drawn grey. District names are placed at the mean store coordinates.
func Choropleth(w io.Writer, fc *geo.FeatureCollection, comparison models.DistrictComparison) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s 구별 월매출 - 임대료 (%.0f평)", comparison.Category, comparison.FloorArea)
	p.Title.TextStyle.Font.Size = vg.Points(13)
	p.HideAxes()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range comparison.Districts {
		if v := d.RevenueMinusRent; v.Valid() {
			lo = math.Min(lo, v.Float())
			hi = math.Max(hi, v.Float())
		}
	}
	scale, err := blues(lo, hi)
	if err != nil {
		return err
	}

	for _, f := range fc.Features {
		name := geo.Name(f)
		rings, err := geo.OuterRings(f.Geometry)
		if err != nil {
			return fmt.Errorf("feature %q: %w", name, err)
		}

		fill := color.Color(noDataColor)
		if d, ok := comparison.Find(name); ok && d.RevenueMinusRent.Valid() {
			fill = scale(d.RevenueMinusRent.Float())
		}

		for _, ring := range rings {
			if len(ring) < 3 {
				continue
			}
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt.X(), Y: pt.Y()}
			}
			poly, err := plotter.NewPolygon(xys)
			if err != nil {
				return fmt.Errorf("feature %q: %w", name, err)
			}
			poly.Color = fill
			poly.LineStyle.Color = color.White
			poly.LineStyle.Width = vg.Points(0.8)
			p.Add(poly)
		}
	}

	var (
		xys    plotter.XYs
		labels []string
	)
	for _, d := range comparison.Districts {
		if d.Lat.Valid() && d.Lon.Valid() {
			xys = append(xys, plotter.XY{X: d.Lon.Float(), Y: d.Lat.Float()})
			labels = append(labels, d.District)
		}
	}
	if len(labels) > 0 {
		names, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return fmt.Errorf("district labels: %w", err)
		}
		for i := range names.TextStyle {
			names.TextStyle[i].XAlign = draw.XCenter
			names.TextStyle[i].YAlign = draw.YCenter
			names.TextStyle[i].Font.Size = vg.Points(7)
		}
		p.Add(names)
	}

	return writeSVG(w, p, 18*vg.Centimeter, 15*vg.Centimeter)
}
