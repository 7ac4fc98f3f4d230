package dataset

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"seoul-dashboard/internal/models"
)

var (
	ErrNoMatchingRows   = errors.New("no rows match category")
	ErrInvalidFloorArea = errors.New("floor area must be a positive number")
)

// matching returns the rows whose category label contains category.
// The match is a case-sensitive substring test; an empty category matches
// every row.
func (d *Dataset) matching(category string) ([]row, error) {
	var out []row
	for _, r := range d.rows {
		if strings.Contains(r.Category, category) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoMatchingRows, category)
	}
	return out, nil
}

// CompareDistricts summarises category per district at the given floor area
// (평). Every district of the dataset gets a row; districts without matching
// rows carry undefined metrics. Rows are ordered by ascending rent per area.
func (d *Dataset) CompareDistricts(category string, floorArea float64) (models.DistrictComparison, error) {
	if floorArea <= 0 || math.IsNaN(floorArea) || math.IsInf(floorArea, 0) {
		return models.DistrictComparison{}, fmt.Errorf("%w: %v", ErrInvalidFloorArea, floorArea)
	}

	matched, err := d.matching(category)
	if err != nil {
		return models.DistrictComparison{}, err
	}

	byDistrict := make(map[string][]row, len(d.districts))
	for _, r := range matched {
		byDistrict[r.District] = append(byDistrict[r.District], r)
	}

	summaries := make([]models.DistrictSummary, 0, len(d.districts))
	for _, name := range d.districts {
		summaries = append(summaries, summarizeDistrict(name, byDistrict[name], floorArea))
	}

	slices.SortStableFunc(summaries, func(a, b models.DistrictSummary) int {
		switch av, bv := a.RentPerArea.Valid(), b.RentPerArea.Valid(); {
		case av && !bv:
			return -1
		case !av && bv:
			return 1
		case !av && !bv:
			return 0
		}
		return cmp.Compare(a.RentPerArea, b.RentPerArea)
	})

	return models.DistrictComparison{
		Category:    category,
		FloorArea:   floorArea,
		MatchedRows: len(matched),
		Districts:   summaries,
	}, nil
}

func summarizeDistrict(name string, rows []row, floorArea float64) models.DistrictSummary {
	pick := func(f func(row) float64) float64 {
		vals := make([]float64, len(rows))
		for i, r := range rows {
			vals[i] = f(r)
		}
		return nanMean(vals)
	}

	revenue := roundDefined(pick(func(r row) float64 { return r.MonthlyRevenue.Float() }))
	rent := pick(func(r row) float64 { return r.RentPerArea.Float() })
	ticket := roundDefined(pick(func(r row) float64 { return r.AvgTicket.Float() }))

	rentCost := rent * floorArea

	return models.DistrictSummary{
		District:         name,
		Rows:             len(rows),
		MonthlyRevenue:   models.Metric(revenue),
		RentPerArea:      models.Metric(rent),
		AvgTicket:        models.Metric(ticket),
		Lat:              models.Metric(pick(func(r row) float64 { return r.lat })),
		Lon:              models.Metric(pick(func(r row) float64 { return r.lon })),
		RevenueMinusRent: models.Metric(revenue - rentCost),
		RentCost:         models.Metric(rentCost),
		RentRatio:        models.Metric(safeDiv(rentCost, revenue) * 100),
	}
}

// nanMean averages the defined values; it is NaN when none are defined.
func nanMean(vals []float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func roundDefined(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.RoundToEven(v)
}
