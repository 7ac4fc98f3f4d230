package models

import (
	"math"
	"strconv"
)

// Metric is a derived figure that may be undefined (NaN), e.g. a ratio over
// an empty slice. Undefined values encode as JSON null.
type Metric float64

func Undefined() Metric { return Metric(math.NaN()) }

func (m Metric) Valid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m Metric) Float() float64 { return float64(m) }

// OrZero returns the value, or 0 when undefined.
func (m Metric) OrZero() float64 {
	if !m.Valid() {
		return 0
	}
	return float64(m)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(m), 'f', -1, 64), nil
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}
