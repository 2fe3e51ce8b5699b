// Package units provides shared constants and conversions for marine speed
// and distance units.
package units

// Unit constants
const (
	Knots = "knots"
	MPS   = "mps"
	KMPH  = "kmph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Knots, MPS, KMPH}

// KmPerNauticalMile is the length of a nautical mile in kilometres.
const KmPerNauticalMile = 1.852

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed over ground in knots to the target units.
// AIS reports speed in knots.
func ConvertSpeed(knots float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH:
		return knots * KmPerNauticalMile
	case MPS:
		return knots * KmPerNauticalMile / 3.6
	default:
		return knots
	}
}

// KnotsToKmPerMinute returns the distance covered in one minute.
func KnotsToKmPerMinute(knots float64) float64 {
	return knots / 60 * KmPerNauticalMile
}

// KmToMeters converts kilometres to metres.
func KmToMeters(km float64) float64 {
	return km * 1000
}
