package handlers

import (
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"seoul-dashboard/internal/models"
)

const undefinedText = "-"

var printer = message.NewPrinter(language.Korean)

// won formats an amount with digit grouping, rounded to whole won.
func won(m models.Metric) string {
	if !m.Valid() {
		return undefinedText
	}
	return printer.Sprintf("%.0f원", m.Float())
}

func wonDecimal(d decimal.Decimal) string {
	return printer.Sprintf("%.0f원", d.Round(0).InexactFloat64())
}

func ticket(t decimal.NullDecimal) string {
	if !t.Valid {
		return undefinedText
	}
	return wonDecimal(t.Decimal)
}

func count(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.Round(0).IntPart())
}

func percent(m models.Metric) string {
	if !m.Valid() {
		return undefinedText
	}
	return printer.Sprintf("%.1f%%", m.Float())
}

var fragmentFuncs = template.FuncMap{
	"won":        won,
	"wonDecimal": wonDecimal,
	"ticket":     ticket,
	"count":      count,
	"percent":    percent,
}
