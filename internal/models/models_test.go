package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMetric_JSON(t *testing.T) {
	tests := []struct {
		in   Metric
		want string
	}{
		{Metric(1500), "1500"},
		{Metric(12.5), "12.5"},
		{Undefined(), "null"},
		{Metric(math.Inf(1)), "null"},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", tt.in, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.in, b, tt.want)
		}
	}

	var m Metric
	if err := json.Unmarshal([]byte("null"), &m); err != nil || m.Valid() {
		t.Errorf("Unmarshal(null) = %v, %v; want undefined", m, err)
	}
}

func comparison() DistrictComparison {
	return DistrictComparison{
		Districts: []DistrictSummary{
			{District: "A", RevenueMinusRent: 100},
			{District: "B", RevenueMinusRent: 300},
			{District: "C", RevenueMinusRent: Undefined()},
			{District: "D", RevenueMinusRent: -50},
			{District: "E", RevenueMinusRent: 200},
		},
	}
}

func TestDistrictComparison_Ranking(t *testing.T) {
	c := comparison()

	top := c.Top(2)
	if len(top) != 2 || top[0].District != "B" || top[1].District != "E" {
		t.Errorf("Top(2) = %+v", top)
	}

	bottom := c.Bottom(2)
	if len(bottom) != 2 || bottom[0].District != "A" || bottom[1].District != "D" {
		t.Errorf("Bottom(2) = %+v", bottom)
	}

	if got := len(c.Top(10)); got != 4 {
		t.Errorf("Top(10) returned %d rows, want 4 defined rows", got)
	}

	if got := c.MeanRevenueMinusRent(); got != 137.5 {
		t.Errorf("MeanRevenueMinusRent() = %v, want 137.5", got)
	}

	if _, ok := c.Find("C"); !ok {
		t.Error("Find(C) should succeed even for undefined metrics")
	}
	if _, ok := c.Find("Z"); ok {
		t.Error("Find(Z) should fail")
	}
}

func TestDistrictComparison_EmptyMean(t *testing.T) {
	if (DistrictComparison{}).MeanRevenueMinusRent().Valid() {
		t.Error("mean of no districts should be undefined")
	}
}

func TestSumAmounts(t *testing.T) {
	amounts := []LabeledAmount{
		{Label: "1", Revenue: decimal.RequireFromString("0.1")},
		{Label: "2", Revenue: decimal.RequireFromString("0.2")},
	}
	if !SumAmounts(amounts).Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("SumAmounts() = %s, want 0.3", SumAmounts(amounts))
	}
}
