package models

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// MergedRecord is one sales row of the reference year joined with its
// district's rent.
type MergedRecord struct {
	Year           int     `json:"year"`
	Quarter        int     `json:"quarter"`
	District       string  `json:"district"`
	Category       string  `json:"category"`
	Revenue        float64 `json:"quarterly_revenue"`
	Transactions   float64 `json:"quarterly_transactions"`
	Stores         float64 `json:"stores"`
	RentPerArea    Metric  `json:"rent_per_area"`
	RentKnown      bool    `json:"rent_known"`
	MonthlyRevenue Metric  `json:"monthly_revenue"`
	AvgTicket      Metric  `json:"avg_ticket"`
}

// DistrictSummary holds one district's figures for a category at a given
// floor area. Money is in won, area in 평.
type DistrictSummary struct {
	District         string `json:"district"`
	Rows             int    `json:"rows"`
	MonthlyRevenue   Metric `json:"monthly_revenue"`
	RentPerArea      Metric `json:"rent_per_area"`
	AvgTicket        Metric `json:"avg_ticket"`
	Lat              Metric `json:"lat"`
	Lon              Metric `json:"lon"`
	RevenueMinusRent Metric `json:"revenue_minus_rent"`
	RentCost         Metric `json:"rent_cost"`
	RentRatio        Metric `json:"rent_ratio"`
}

type DistrictComparison struct {
	Category    string            `json:"category"`
	FloorArea   float64           `json:"floor_area"`
	MatchedRows int               `json:"matched_rows"`
	Districts   []DistrictSummary `json:"districts"`
}

// Ranked returns districts with a defined revenue-minus-rent, highest first.
func (c DistrictComparison) Ranked() []DistrictSummary {
	ranked := make([]DistrictSummary, 0, len(c.Districts))
	for _, d := range c.Districts {
		if d.RevenueMinusRent.Valid() {
			ranked = append(ranked, d)
		}
	}
	slices.SortStableFunc(ranked, func(a, b DistrictSummary) int {
		return cmp.Compare(b.RevenueMinusRent, a.RevenueMinusRent)
	})
	return ranked
}

func (c DistrictComparison) Top(n int) []DistrictSummary {
	ranked := c.Ranked()
	return ranked[:min(n, len(ranked))]
}

// Bottom returns the last n ranked districts, still highest first.
func (c DistrictComparison) Bottom(n int) []DistrictSummary {
	ranked := c.Ranked()
	return ranked[max(0, len(ranked)-n):]
}

// MeanRevenueMinusRent averages the defined revenue-minus-rent values.
func (c DistrictComparison) MeanRevenueMinusRent() Metric {
	var sum float64
	var n int
	for _, d := range c.Districts {
		if d.RevenueMinusRent.Valid() {
			sum += d.RevenueMinusRent.Float()
			n++
		}
	}
	if n == 0 {
		return Undefined()
	}
	return Metric(sum / float64(n))
}

func (c DistrictComparison) Find(district string) (DistrictSummary, bool) {
	for _, d := range c.Districts {
		if d.District == district {
			return d, true
		}
	}
	return DistrictSummary{}, false
}

type LabeledAmount struct {
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

// LabeledTicket pairs a slice's revenue with its average transaction value.
type LabeledTicket struct {
	Label   string              `json:"label"`
	Revenue decimal.Decimal     `json:"revenue"`
	Ticket  decimal.NullDecimal `json:"ticket"`
}

// CategorySummary is the citywide breakdown of one category.
type CategorySummary struct {
	Category       string          `json:"category"`
	MatchedRows    int             `json:"matched_rows"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	StoreCount     decimal.Decimal `json:"store_count"`
	Quarters       []LabeledAmount `json:"quarters"`
	WeekdayRevenue decimal.Decimal `json:"weekday_revenue"`
	WeekendRevenue decimal.Decimal `json:"weekend_revenue"`
	Genders        []LabeledTicket `json:"genders"`
	Weekdays       []LabeledAmount `json:"weekdays"`
	AgeBrackets    []LabeledTicket `json:"age_brackets"`
	HourBands      []LabeledAmount `json:"hour_bands"`
}

func SumAmounts(amounts []LabeledAmount) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Revenue)
	}
	return total
}

func SumTickets(tickets []LabeledTicket) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tickets {
		total = total.Add(t.Revenue)
	}
	return total
}
