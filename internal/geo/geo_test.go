package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceKm_ZeroAndSymmetric(t *testing.T) {
	points := []Point{
		{Lat: 59.837, Lon: 23.29},
		{Lat: 60.1, Lon: 24.9},
		{Lat: 65.0, Lon: 25.0},
		{Lat: 0, Lon: 0},
		{Lat: -33.9, Lon: 151.2},
	}
	for _, p := range points {
		if d := DistanceKm(p, p); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, d)
		}
	}
	for _, p := range points {
		for _, q := range points {
			if math.Abs(DistanceKm(p, q)-DistanceKm(q, p)) > 1e-9 {
				t.Errorf("DistanceKm not symmetric for %v, %v", p, q)
			}
		}
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	// One degree of latitude on a 6373 km sphere.
	want := DistanceEarthRadiusKm * math.Pi / 180
	got := DistanceKm(Point{Lat: 60, Lon: 20}, Point{Lat: 61, Lon: 20})
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}

	// Helsinki to Tallinn is about 80 km.
	d := DistanceKm(Point{Lat: 60.1699, Lon: 24.9384}, Point{Lat: 59.4370, Lon: 24.7536})
	if d < 78 || d > 84 {
		t.Errorf("Helsinki-Tallinn distance %v outside expected range", d)
	}
}

func TestProject_RoundTripDistance(t *testing.T) {
	start := Point{Lat: 59.837, Lon: 23.29}
	for _, bearing := range []float64{0, 45, 90, 180, 270, 359} {
		end := Project(start, bearing, 10)
		// Projection and distance use different radii; the ratio is fixed.
		want := 10 * DistanceEarthRadiusKm / ProjectionEarthRadiusKm
		if got := DistanceKm(start, end); math.Abs(got-want) > 1e-6 {
			t.Errorf("bearing %v: distance %v, want %v", bearing, got, want)
		}
	}
}

func TestProject_Directions(t *testing.T) {
	start := Point{Lat: 60, Lon: 20}

	north := Project(start, 0, 5)
	if north.Lat <= start.Lat || math.Abs(north.Lon-start.Lon) > 1e-9 {
		t.Errorf("north projection went to %v", north)
	}
	east := Project(start, 90, 5)
	if east.Lon <= start.Lon {
		t.Errorf("east projection went to %v", east)
	}
	south := Project(start, 180, 5)
	if south.Lat >= start.Lat {
		t.Errorf("south projection went to %v", south)
	}
	if got := Project(start, 123, 0); math.Abs(got.Lat-start.Lat) > 1e-12 || math.Abs(got.Lon-start.Lon) > 1e-12 {
		t.Errorf("zero distance projection moved to %v", got)
	}
}

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"valid", Point{Lat: 60, Lon: 24}, false},
		{"edges", Point{Lat: -90, Lon: 180}, false},
		{"nan lat", Point{Lat: math.NaN(), Lon: 24}, true},
		{"inf lon", Point{Lat: 60, Lon: math.Inf(1)}, true},
		{"lat range", Point{Lat: 91, Lon: 24}, true},
		{"lon range", Point{Lat: 60, Lon: -181}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCoordinate) {
				t.Errorf("error %v does not wrap ErrInvalidCoordinate", err)
			}
		})
	}
}
