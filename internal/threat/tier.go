// Package threat classifies how dangerous each vessel's trajectory is to each
// glider.
package threat

import "strconv"

// Tier is an ordinal threat level. Higher is more severe, except that
// TierAllowListed marks known support vessels.
type Tier int

const (
	TierNone         Tier = 0  // unclassified
	TierSharedRegion Tier = 1  // shares or transits a region of the glider's route
	TierPathCrossing Tier = 2  // buffered path touches the glider's route
	TierInRange      Tier = 3  // glider is inside the vessel's hourly radius
	TierStationary   Tier = 4  // vessel not moving
	TierProximity    Tier = 5  // vessel within the proximity threshold
	TierAllowListed  Tier = 99 // known research or support vessel
)

// Actionable reports whether observations at t are recorded in history.
func (t Tier) Actionable() bool {
	return t == TierPathCrossing || t == TierInRange || t == TierProximity
}

// Colour is the map marker colour for t.
func (t Tier) Colour() string {
	switch t {
	case TierSharedRegion:
		return "yellow"
	case TierPathCrossing:
		return "orange"
	case TierInRange:
		return "red"
	case TierStationary:
		return "grey"
	case TierProximity:
		return "purple"
	case TierAllowListed:
		return "#26f018"
	default:
		return "#8ED6FF"
	}
}

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierSharedRegion:
		return "shared-region"
	case TierPathCrossing:
		return "path-crossing"
	case TierInRange:
		return "in-range"
	case TierStationary:
		return "stationary"
	case TierProximity:
		return "proximity"
	case TierAllowListed:
		return "allow-listed"
	default:
		return "tier-" + strconv.Itoa(int(t))
	}
}

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierNone, TierSharedRegion, TierPathCrossing, TierInRange, TierStationary, TierProximity, TierAllowListed}
