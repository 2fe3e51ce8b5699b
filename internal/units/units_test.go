package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		knots    float64
		units    string
		expected float64
	}{
		{"10 knots to kmph", 10.0, KMPH, 18.52},
		{"10 knots to mps", 10.0, MPS, 5.1444},
		{"10 knots to knots", 10.0, Knots, 10.0},
		{"unknown units default to knots", 10.0, "unknown", 10.0},
		{"0 knots to kmph", 0.0, KMPH, 0.0},
		{"ferry speed 25 knots to kmph", 25.0, KMPH, 46.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.knots, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.knots, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	if IsValid("mph") {
		t.Errorf("IsValid(mph) = true, want false")
	}
}

func TestKnotsToKmPerMinute(t *testing.T) {
	if got := KnotsToKmPerMinute(15); math.Abs(got-0.463) > 1e-12 {
		t.Errorf("KnotsToKmPerMinute(15) = %v, want 0.463", got)
	}
	if got := KmToMeters(KnotsToKmPerMinute(15) * 60); math.Abs(got-27780) > 1e-6 {
		t.Errorf("hourly distance = %v m, want 27780", got)
	}
}
