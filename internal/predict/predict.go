// Package predict extrapolates short-horizon vessel paths by dead reckoning.
package predict

import (
	"math"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
	"github.com/eervaisa/FMI-Gliders/internal/units"
)

// Horizon defaults.
const (
	DefaultHorizonMinutes = 60
	DefaultStepMinutes    = 1

	// DefaultMaxStepRotation is the per-step bearing change (degrees) at
	// which stepping is abandoned and only a radius is returned.
	DefaultMaxStepRotation = 90.0

	// rotScale converts the AIS rate of turn indicator back to degrees per
	// minute: ROT_ind = 4.733 * sqrt(ROT_deg).
	rotScale = 4.733

	// uTurnLimit caps total bearing change from the reported course.
	uTurnLimit = 180.0
)

// Predictor projects vessel motion over a fixed horizon.
type Predictor struct {
	HorizonMinutes  int
	StepMinutes     int
	MaxStepRotation float64
}

// NewPredictor returns a predictor with a 60 minute horizon in one minute steps.
func NewPredictor() *Predictor {
	return &Predictor{
		HorizonMinutes:  DefaultHorizonMinutes,
		StepMinutes:     DefaultStepMinutes,
		MaxStepRotation: DefaultMaxStepRotation,
	}
}

// Prediction is a projected path and the radius bounding the horizon.
type Prediction struct {
	Path         []geo.Point `json:"path"`
	RadiusMeters float64     `json:"radius_m"`
}

// StepRotation converts a rate of turn indicator to degrees per step.
func StepRotation(rot float64, stepMinutes int) float64 {
	sign := 0.0
	switch {
	case rot > 0:
		sign = 1
	case rot < 0:
		sign = -1
	}
	return math.Pow(rot/rotScale, 2) * float64(stepMinutes) * sign
}

// Predict extrapolates the path of a vessel at pos.
//
// Unknown or zero speed yields a single-point path and zero radius. A rate
// of turn too fast to follow, or an unknown course, yields a single-point
// path with the full horizon radius. Otherwise the path holds one point per
// step, starting at pos, turning by the step rotation until the bearing has
// swung 180 degrees from the reported course, after which it holds the
// reciprocal course.
func (p *Predictor) Predict(pos geo.Point, sog, cog, rot ais.Measurement) Prediction {
	path := []geo.Point{pos}
	if !sog.Valid || sog.Value == 0 {
		return Prediction{Path: path}
	}

	steps := p.HorizonMinutes / p.StepMinutes
	stepKm := units.KnotsToKmPerMinute(sog.Value) * float64(p.StepMinutes)
	stepRot := StepRotation(rot.Or(0), p.StepMinutes)

	radius := units.KmToMeters(stepKm * float64(steps))
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		radius = 0
	}

	if math.Abs(stepRot) >= p.MaxStepRotation || !cog.Valid {
		return Prediction{Path: path, RadiusMeters: radius}
	}

	course := cog.Value
	bearing := course
	for i := 0; i < steps-1; i++ {
		path = append(path, geo.Project(path[i], bearing, stepKm))
		if roundTo(math.Abs(bearing-course), 2) >= uTurnLimit {
			bearing = math.Mod(course+uTurnLimit, 360)
		} else {
			bearing += stepRot
		}
	}
	return Prediction{Path: path, RadiusMeters: radius}
}

// Predict runs the default predictor.
func Predict(pos geo.Point, sog, cog, rot ais.Measurement) Prediction {
	return NewPredictor().Predict(pos, sog, cog, rot)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
