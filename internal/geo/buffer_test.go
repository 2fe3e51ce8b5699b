package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestBufferIntersects(t *testing.T) {
	t.Parallel()

	origin := Point{Lat: 59.837, Lon: 23.29}
	east10 := Project(origin, 90, 10)
	north3 := Project(origin, 0, 3)

	tests := []struct {
		name   string
		path   []Point
		radius float64
		target []Point
		want   bool
	}{
		{"zero radius never intersects", []Point{origin}, 0, []Point{origin}, false},
		{"negative radius", []Point{origin}, -5, []Point{origin}, false},
		{"empty path", nil, 1000, []Point{origin}, false},
		{"point on point", []Point{origin}, 1, []Point{origin}, true},
		{"point within radius", []Point{origin}, 3500, []Point{north3}, true},
		{"point outside radius", []Point{origin}, 2500, []Point{north3}, false},
		{"route crosses path", []Point{origin, east10}, 1, []Point{Project(Project(origin, 90, 5), 0, 2), Project(Project(origin, 90, 5), 180, 2)}, true},
		{"route parallel beyond radius", []Point{origin, east10}, 2500, []Point{north3, Project(north3, 90, 10)}, false},
		{"route parallel within radius", []Point{origin, east10}, 3500, []Point{north3, Project(north3, 90, 10)}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BufferIntersects(tt.path, tt.radius, tt.target))
		})
	}
}

func TestSegmentDistance(t *testing.T) {
	t.Parallel()

	a, b := r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}
	assert.Equal(t, 0.0, segmentDistance(a, b, r2.Vec{X: 5, Y: -1}, r2.Vec{X: 5, Y: 1}))
	assert.InDelta(t, 2.0, segmentDistance(a, b, r2.Vec{X: 3, Y: 2}, r2.Vec{X: 7, Y: 2}), 1e-12)
	assert.InDelta(t, 5.0, segmentDistance(a, b, r2.Vec{X: 13, Y: 4}, r2.Vec{X: 13, Y: 4}), 1e-12)
	assert.InDelta(t, 0.0, segmentDistance(a, b, r2.Vec{X: 10, Y: 0}, r2.Vec{X: 12, Y: 3}), 1e-12)
}
