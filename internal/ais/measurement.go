package ais

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strconv"
)

// Measurement is an optional kinematic reading. The zero value is unknown.
type Measurement struct {
	Value float64
	Valid bool
}

// Unknown is a reading that was not reported or was reported as "not available".
var Unknown = Measurement{}

// Known wraps a reported value.
func Known(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// Or returns the value, or def when unknown.
func (m Measurement) Or(def float64) float64 {
	if !m.Valid {
		return def
	}
	return m.Value
}

// Is reports whether m is known and equal to v.
func (m Measurement) Is(v float64) bool {
	return m.Valid && m.Value == v
}

// NullFloat64 converts m for use as a query argument.
func (m Measurement) NullFloat64() sql.NullFloat64 {
	return sql.NullFloat64{Float64: m.Value, Valid: m.Valid}
}

// FromNull converts a scanned column.
func FromNull(n sql.NullFloat64) Measurement {
	return Measurement{Value: n.Float64, Valid: n.Valid}
}

func (m Measurement) String() string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON encodes unknown readings as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Unknown
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Known(v)
	return nil
}
