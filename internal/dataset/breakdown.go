package dataset

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"seoul-dashboard/internal/models"
)

// BreakdownCategory computes the citywide figures for category. Sums are
// exact decimals, so the quarter, weekday, hour-band and age partitions add
// up to the totals they split wherever the source columns do.
func (d *Dataset) BreakdownCategory(category string) (models.CategorySummary, error) {
	matched, err := d.matching(category)
	if err != nil {
		return models.CategorySummary{}, err
	}

	var (
		total, weekday, weekend, stores decimal.Decimal
		quarters                        [quarterCount]decimal.Decimal
		genderRev, genderCnt            [2]decimal.Decimal
		days                            [7]decimal.Decimal
		ageRev, ageCnt                  [6]decimal.Decimal
		hours                           [6]decimal.Decimal
	)

	for _, r := range matched {
		revenue := toDecimal(r.Revenue)
		total = total.Add(revenue)
		if q := r.Quarter; q >= 1 && q <= quarterCount {
			quarters[q-1] = quarters[q-1].Add(revenue)
		}
		if r.Quarter == quarterCount {
			stores = stores.Add(toDecimal(r.Stores))
		}

		weekday = weekday.Add(toDecimal(r.weekday))
		weekend = weekend.Add(toDecimal(r.weekend))

		for i := range genderRev {
			genderRev[i] = genderRev[i].Add(toDecimal(r.genderRevenue[i]))
			genderCnt[i] = genderCnt[i].Add(toDecimal(r.genderCount[i]))
		}
		for i := range days {
			days[i] = days[i].Add(toDecimal(r.dayRevenue[i]))
		}
		for i := range ageRev {
			ageRev[i] = ageRev[i].Add(toDecimal(r.ageRevenue[i]))
			ageCnt[i] = ageCnt[i].Add(toDecimal(r.ageCount[i]))
		}
		for i := range hours {
			hours[i] = hours[i].Add(toDecimal(r.hourRevenue[i]))
		}
	}

	summary := models.CategorySummary{
		Category:       category,
		MatchedRows:    len(matched),
		TotalRevenue:   total,
		StoreCount:     stores,
		WeekdayRevenue: weekday,
		WeekendRevenue: weekend,
	}

	for i, q := range quarters {
		summary.Quarters = append(summary.Quarters, models.LabeledAmount{
			Label:   fmt.Sprintf("%d분기", i+1),
			Revenue: q,
		})
	}
	for i, s := range genderSlices {
		summary.Genders = append(summary.Genders, models.LabeledTicket{
			Label:   s.Label,
			Revenue: genderRev[i],
			Ticket:  ticket(genderRev[i], genderCnt[i]),
		})
	}
	for i, s := range daySlices {
		summary.Weekdays = append(summary.Weekdays, models.LabeledAmount{Label: s.Label, Revenue: days[i]})
	}
	for i, s := range ageSlices {
		summary.AgeBrackets = append(summary.AgeBrackets, models.LabeledTicket{
			Label:   s.Label,
			Revenue: ageRev[i],
			Ticket:  ticket(ageRev[i], ageCnt[i]),
		})
	}
	for i, s := range hourSlices {
		summary.HourBands = append(summary.HourBands, models.LabeledAmount{Label: s.Label, Revenue: hours[i]})
	}

	return summary, nil
}

// toDecimal treats undefined cells as absent, matching a NaN-skipping sum.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// ticket is sum(revenue)/sum(count), undefined when the slice has no
// transactions.
func ticket(revenue, count decimal.Decimal) decimal.NullDecimal {
	if count.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(revenue.Div(count))
}
