package handlers

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/dataset"
	"seoul-dashboard/internal/errors"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/services"
)

// query is the category/floor-area pair every analysis endpoint takes.
type query struct {
	Category string
	Area     float64
}

// Encode renders the query for chart and export links.
func (q query) Encode() string {
	v := url.Values{}
	v.Set("category", q.Category)
	v.Set("area", strconv.FormatFloat(q.Area, 'f', -1, 64))
	return v.Encode()
}

func parseArea(raw string, fallback float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	area, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(area) || math.IsInf(area, 0) || area <= 0 {
		return 0, errors.Validation("floor area must be a positive number").
			WithDetails(fmt.Sprintf("area=%q", raw))
	}
	return area, nil
}

// parseQuery reads category and area from the URL, falling back to the
// dashboard defaults when either is absent.
func parseQuery(r *http.Request, defaults config.DashboardConfig) (query, error) {
	values := r.URL.Query()

	category := defaults.DefaultCategory
	if values.Has("category") {
		category = strings.TrimSpace(values.Get("category"))
	}

	area, err := parseArea(values.Get("area"), defaults.DefaultFloorArea)
	if err != nil {
		return query{}, err
	}
	return query{Category: category, Area: area}, nil
}

var domainErrors = errors.Translator{
	{Target: dataset.ErrNoMatchingRows, Code: errors.CodeNoMatch, Message: "no rows match the category"},
	{Target: dataset.ErrInvalidFloorArea, Code: errors.CodeValidation, Message: "floor area must be a positive number"},
	{Target: services.ErrUnknownDistrict, Code: errors.CodeNotFound, Message: "district not found"},
	{Target: services.ErrNotLoaded, Code: errors.CodeServiceUnavail, Message: "dataset is not loaded"},
	{Target: geo.ErrUnavailable, Code: errors.CodeServiceUnavail, Message: "district boundaries are unavailable"},
}

// domainError maps analysis failures onto API errors.
func domainError(err error) error {
	return domainErrors.Translate(err)
}
