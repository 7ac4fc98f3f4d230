// Package export writes dashboard summaries as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"seoul-dashboard/internal/models"
)

const (
	DistrictSheet = "구별 비교"
	CitywideSheet = "업종 요약"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var districtHeader = []any{
	"구", "행 수", "월평균 매출", "평당 임대료", "객단가",
	"임대료", "월매출 - 임대료", "임대료 비율(%)",
}

// Workbook writes the district comparison and the citywide breakdown to w,
// one sheet each. Undefined figures are left as empty cells.
func Workbook(w io.Writer, comparison models.DistrictComparison, summary models.CategorySummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DistrictSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(CitywideSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeDistricts(f, comparison, bold); err != nil {
		return err
	}
	if err := writeCitywide(f, summary, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeDistricts(f *excelize.File, c models.DistrictComparison, bold int) error {
	rows := [][]any{
		{"업종", c.Category, "면적(평)", c.FloorArea, "행 수", c.MatchedRows},
		{},
		districtHeader,
	}
	for _, d := range c.Districts {
		rows = append(rows, []any{
			d.District, d.Rows,
			cell(d.MonthlyRevenue), cell(d.RentPerArea), cell(d.AvgTicket),
			cell(d.RentCost), cell(d.RevenueMinusRent), cell(d.RentRatio),
		})
	}

	if err := setRows(f, DistrictSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(DistrictSheet, "A3", "H3", bold); err != nil {
		return fmt.Errorf("style %s: %w", DistrictSheet, err)
	}
	return f.SetColWidth(DistrictSheet, "A", "H", 16)
}

func writeCitywide(f *excelize.File, s models.CategorySummary, bold int) error {
	rows := [][]any{
		{"업종", s.Category},
		{"총 매출", money(s.TotalRevenue)},
		{"점포수", money(s.StoreCount)},
		{"주중 매출", money(s.WeekdayRevenue)},
		{"주말 매출", money(s.WeekendRevenue)},
	}

	var headers []int
	section := func(title string, amounts []models.LabeledAmount) {
		rows = append(rows, []any{}, []any{title, "매출"})
		headers = append(headers, len(rows))
		for _, a := range amounts {
			rows = append(rows, []any{a.Label, money(a.Revenue)})
		}
	}
	ticketSection := func(title string, tickets []models.LabeledTicket) {
		rows = append(rows, []any{}, []any{title, "매출", "객단가"})
		headers = append(headers, len(rows))
		for _, t := range tickets {
			var ticket any
			if t.Ticket.Valid {
				ticket = money(t.Ticket.Decimal)
			}
			rows = append(rows, []any{t.Label, money(t.Revenue), ticket})
		}
	}

	section("분기", s.Quarters)
	ticketSection("성별", s.Genders)
	section("요일", s.Weekdays)
	ticketSection("연령대", s.AgeBrackets)
	section("시간대", s.HourBands)

	if err := setRows(f, CitywideSheet, rows); err != nil {
		return err
	}
	for _, r := range headers {
		start, _ := excelize.CoordinatesToCellName(1, r)
		end, _ := excelize.CoordinatesToCellName(3, r)
		if err := f.SetCellStyle(CitywideSheet, start, end, bold); err != nil {
			return fmt.Errorf("style %s: %w", CitywideSheet, err)
		}
	}
	return f.SetColWidth(CitywideSheet, "A", "C", 16)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		start, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cell(m models.Metric) any {
	if !m.Valid() {
		return nil
	}
	return m.Float()
}

// money keeps whole amounts as integers so spreadsheets do not show a
// trailing fraction.
func money(d decimal.Decimal) any {
	if d.IsInteger() {
		return d.IntPart()
	}
	return d.InexactFloat64()
}
