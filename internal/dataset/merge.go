package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"seoul-dashboard/internal/models"
)

var ErrNoRowsForYear = errors.New("no sales rows for reference year")

// row is a merged sales row with every column the aggregations need.
type row struct {
	models.MergedRecord
	lat, lon         float64
	weekday, weekend float64
	genderRevenue    [2]float64
	genderCount      [2]float64
	dayRevenue       [7]float64
	ageRevenue       [6]float64
	ageCount         [6]float64
	hourRevenue      [6]float64
}

// Dataset is the merged sales table for one reference year. It is immutable
// once built and safe for concurrent readers.
type Dataset struct {
	year       int
	frame      dataframe.DataFrame
	rows       []row
	districts  []string
	categories []string
	unmatched  []string
	loadedAt   time.Time
}

// Merge keeps the sales rows of year, attaches each row's district rent and
// derives monthly revenue per store and average ticket.
//
// Rows whose district has no rent entry keep a NaN rent and are marked
// RentKnown=false; their districts are listed by UnmatchedDistricts.
func Merge(sales dataframe.DataFrame, rent RentTable, year int) (*Dataset, error) {
	years := sales.Col(ColYear).Float()
	keep := make([]int, 0, len(years))
	for i, y := range years {
		if y == float64(year) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoRowsForYear, year)
	}

	df := sales.Subset(keep)
	if df.Err != nil {
		return nil, fmt.Errorf("filter year %d: %w", year, df.Err)
	}

	districtNames := df.Col(ColDistrict).Records()
	rents := make([]float64, len(districtNames))
	known := make([]bool, len(districtNames))
	var unmatched []string
	for i, name := range districtNames {
		rents[i], known[i] = rent.Lookup(name)
		if !known[i] && !slices.Contains(unmatched, name) {
			unmatched = append(unmatched, name)
		}
	}

	revenue := df.Col(ColRevenue).Float()
	stores := df.Col(ColStores).Float()
	transactions := df.Col(ColTransactions).Float()

	monthly := make([]float64, len(revenue))
	ticket := make([]float64, len(revenue))
	for i := range revenue {
		monthly[i] = safeDiv(revenue[i], stores[i]*3)
		ticket[i] = safeDiv(revenue[i], transactions[i])
	}

	df = df.Mutate(series.New(rents, series.Float, ColRentPerArea)).
		Mutate(series.New(known, series.Bool, ColRentKnown)).
		Mutate(series.New(monthly, series.Float, ColMonthlyRevenue)).
		Mutate(series.New(ticket, series.Float, ColAvgTicket))
	if df.Err != nil {
		return nil, fmt.Errorf("derive columns: %w", df.Err)
	}

	ds := &Dataset{
		year:      year,
		frame:     df,
		unmatched: unmatched,
		loadedAt:  time.Now(),
	}
	ds.rows = buildRows(df)

	for _, r := range ds.rows {
		if !slices.Contains(ds.districts, r.District) {
			ds.districts = append(ds.districts, r.District)
		}
		if !slices.Contains(ds.categories, r.Category) {
			ds.categories = append(ds.categories, r.Category)
		}
	}
	slices.Sort(ds.categories)

	return ds, nil
}

func buildRows(df dataframe.DataFrame) []row {
	floats := func(col string) []float64 { return df.Col(col).Float() }

	var (
		quarters     = floats(ColQuarter)
		years        = floats(ColYear)
		districts    = df.Col(ColDistrict).Records()
		categories   = df.Col(ColCategory).Records()
		revenue      = floats(ColRevenue)
		transactions = floats(ColTransactions)
		stores       = floats(ColStores)
		rents        = floats(ColRentPerArea)
		monthly      = floats(ColMonthlyRevenue)
		ticket       = floats(ColAvgTicket)
		lat          = floats(ColLat)
		lon          = floats(ColLon)
		weekday      = floats(ColWeekday)
		weekend      = floats(ColWeekend)
	)
	known, err := df.Col(ColRentKnown).Bool()
	if err != nil {
		known = make([]bool, df.Nrow())
		for i, v := range rents {
			known[i] = !math.IsNaN(v)
		}
	}

	columns := func(group []slice, count bool) [][]float64 {
		out := make([][]float64, len(group))
		for i, s := range group {
			if count {
				out[i] = floats(s.Count)
			} else {
				out[i] = floats(s.Revenue)
			}
		}
		return out
	}
	genderRev, genderCnt := columns(genderSlices, false), columns(genderSlices, true)
	dayRev := columns(daySlices, false)
	ageRev, ageCnt := columns(ageSlices, false), columns(ageSlices, true)
	hourRev := columns(hourSlices, false)

	rows := make([]row, df.Nrow())
	for i := range rows {
		r := &rows[i]
		r.MergedRecord = models.MergedRecord{
			Year:           int(years[i]),
			Quarter:        quarterOf(quarters[i]),
			District:       districts[i],
			Category:       categories[i],
			Revenue:        revenue[i],
			Transactions:   transactions[i],
			Stores:         stores[i],
			RentPerArea:    models.Metric(rents[i]),
			RentKnown:      known[i],
			MonthlyRevenue: models.Metric(monthly[i]),
			AvgTicket:      models.Metric(ticket[i]),
		}
		r.lat, r.lon = lat[i], lon[i]
		r.weekday, r.weekend = weekday[i], weekend[i]
		for g := range genderSlices {
			r.genderRevenue[g] = genderRev[g][i]
			r.genderCount[g] = genderCnt[g][i]
		}
		for d := range daySlices {
			r.dayRevenue[d] = dayRev[d][i]
		}
		for a := range ageSlices {
			r.ageRevenue[a] = ageRev[a][i]
			r.ageCount[a] = ageCnt[a][i]
		}
		for h := range hourSlices {
			r.hourRevenue[h] = hourRev[h][i]
		}
	}
	return rows
}

func quarterOf(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}

// safeDiv returns NaN where the quotient is undefined.
func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return math.NaN()
	}
	return num / den
}

func (d *Dataset) Year() int { return d.year }

func (d *Dataset) Len() int { return len(d.rows) }

// Frame returns the merged table including the derived columns.
func (d *Dataset) Frame() dataframe.DataFrame { return d.frame }

// Districts lists districts in order of first appearance.
func (d *Dataset) Districts() []string { return slices.Clone(d.districts) }

func (d *Dataset) Categories() []string { return slices.Clone(d.categories) }

// UnmatchedDistricts lists sales districts with no rent entry.
func (d *Dataset) UnmatchedDistricts() []string { return slices.Clone(d.unmatched) }

func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

func (d *Dataset) Records() []models.MergedRecord {
	out := make([]models.MergedRecord, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.MergedRecord
	}
	return out
}
