package dataset

import (
	"strconv"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"
)

// saleRow describes one synthetic sales row. Revenue should be a multiple
// of 84 and Transactions a multiple of 12 so every split below is exact.
type saleRow struct {
	Year         int
	Quarter      int
	District     string
	Category     string
	Revenue      float64
	Transactions float64
	Stores       float64
	Lat, Lon     float64
}

func (r saleRow) values() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	v := map[string]string{
		ColYear:         strconv.Itoa(r.Year),
		ColQuarter:      strconv.Itoa(r.Quarter),
		ColDistrict:     r.District,
		ColCategory:     r.Category,
		ColRevenue:      f(r.Revenue),
		ColTransactions: f(r.Transactions),
		ColStores:       f(r.Stores),
		ColLat:          f(r.Lat),
		ColLon:          f(r.Lon),
		ColWeekday:      f(r.Revenue * 3 / 4),
		ColWeekend:      f(r.Revenue / 4),
	}
	for _, s := range genderSlices {
		v[s.Revenue] = f(r.Revenue / 2)
		v[s.Count] = f(r.Transactions / 2)
	}
	for _, s := range daySlices {
		v[s.Revenue] = f(r.Revenue / 7)
	}
	for _, s := range ageSlices {
		v[s.Revenue] = f(r.Revenue / 6)
		v[s.Count] = f(r.Transactions / 6)
	}
	for _, s := range hourSlices {
		v[s.Revenue] = f(r.Revenue / 6)
	}
	return v
}

func salesCSV(rows ...saleRow) string {
	header := salesRequiredColumns()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, r := range rows {
		v := r.values()
		cells := make([]string, len(header))
		for i, col := range header {
			cells[i] = v[col]
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func rentCSV(entries ...string) string {
	var b strings.Builder
	b.WriteString("," + ColAnnualRent + "\n")
	for _, e := range entries {
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String()
}

func mustSales(t *testing.T, rows ...saleRow) dataframe.DataFrame {
	t.Helper()
	df, err := ReadSales(strings.NewReader(salesCSV(rows...)), "utf-8")
	require.NoError(t, err)
	return df
}

func mustDataset(t *testing.T, rent RentTable, rows ...saleRow) *Dataset {
	t.Helper()
	ds, err := Merge(mustSales(t, rows...), rent, 2021)
	require.NoError(t, err)
	return ds
}

// coffeeRows is the two-district scenario used across the aggregation tests.
func coffeeRows() []saleRow {
	return []saleRow{
		{Year: 2021, Quarter: 1, District: "A", Category: "Coffee", Revenue: 840000, Transactions: 84, Stores: 2, Lat: 37.5, Lon: 127.0},
		{Year: 2021, Quarter: 4, District: "A", Category: "Coffee", Revenue: 840000, Transactions: 84, Stores: 2, Lat: 37.5, Lon: 127.0},
		{Year: 2021, Quarter: 2, District: "B", Category: "Coffee", Revenue: 1680000, Transactions: 120, Stores: 2, Lat: 37.6, Lon: 127.1},
		{Year: 2021, Quarter: 4, District: "B", Category: "Coffee", Revenue: 1680000, Transactions: 120, Stores: 2, Lat: 37.6, Lon: 127.1},
	}
}
