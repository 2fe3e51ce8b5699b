package threat

import (
	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/predict"
	"github.com/eervaisa/FMI-Gliders/internal/regions"
)

// DefaultProximityKm is the fixed distance inside which any vessel is a threat.
const DefaultProximityKm = 10.0

// Pair is one vessel evaluated against one glider.
type Pair struct {
	Vessel             ais.Vessel
	VesselRegion       string
	DestinationRegions []string
	Prediction         predict.Prediction
	Glider             gliders.Glider
	DistanceKm         float64
}

// Rule assigns Tier when Match holds.
type Rule struct {
	Name  string
	Tier  Tier
	Match func(p *Pair) bool
}

// Cascade is an ordered rule table. Every rule is evaluated and the last
// matching rule decides the tier.
type Cascade struct {
	Rules []Rule
}

// Classify returns the tier of the last matching rule, TierNone when no rule
// matches, and the name of that rule.
func (c *Cascade) Classify(p *Pair) (Tier, string) {
	tier, name := TierNone, ""
	for _, r := range c.Rules {
		if r.Match(p) {
			tier, name = r.Tier, r.Name
		}
	}
	return tier, name
}

// Corridor marks vessels travelling between two groups of regions that
// bracket an occupied region.
type Corridor struct {
	Occupied string
	SideA    []string
	SideB    []string
}

// BalticCorridors are the channels whose traffic passes through the
// occupied region without sharing a region with the glider's route.
var BalticCorridors = []Corridor{
	{
		Occupied: regions.BothnianSea,
		SideA:    []string{regions.BalticSea, regions.ArchipelagoSea, regions.GulfOfFinland, regions.SaimaaAndLaatokka},
		SideB:    []string{regions.BothnianBay},
	},
	{
		Occupied: regions.ArchipelagoSea,
		SideA:    []string{regions.BalticSea, regions.GulfOfFinland, regions.SaimaaAndLaatokka},
		SideB:    []string{regions.BothnianBay, regions.BothnianSea},
	},
	{
		Occupied: regions.GulfOfFinland,
		SideA:    []string{regions.SaimaaAndLaatokka},
		SideB:    []string{regions.BalticSea, regions.ArchipelagoSea, regions.BothnianBay, regions.BothnianSea},
	},
}

// Transits reports whether a vessel in region from heading to any of dests
// passes through the corridor.
func (c Corridor) Transits(from string, dests []string) bool {
	return (contains(c.SideA, from) && containsAny(c.SideB, dests)) ||
		(contains(c.SideB, from) && containsAny(c.SideA, dests))
}

// CascadeOptions configures the rule table.
type CascadeOptions struct {
	Corridors   []Corridor
	ProximityKm float64
	AllowList   []int64
}

// NewCascade builds the rule table in evaluation order.
func NewCascade(opts CascadeOptions) *Cascade {
	allow := make(map[int64]bool, len(opts.AllowList))
	for _, mmsi := range opts.AllowList {
		allow[mmsi] = true
	}
	corridors := opts.Corridors
	proximityKm := opts.ProximityKm

	return &Cascade{Rules: []Rule{
		{
			Name: "shared-region",
			Tier: TierSharedRegion,
			Match: func(p *Pair) bool {
				return contains(p.Glider.RouteRegions, p.VesselRegion) ||
					containsAny(p.Glider.RouteRegions, p.DestinationRegions)
			},
		},
		{
			Name: "corridor",
			Tier: TierSharedRegion,
			Match: func(p *Pair) bool {
				for _, c := range corridors {
					if contains(p.Glider.RouteRegions, c.Occupied) && c.Transits(p.VesselRegion, p.DestinationRegions) {
						return true
					}
				}
				return false
			},
		},
		{
			Name: "path-crossing",
			Tier: TierPathCrossing,
			Match: func(p *Pair) bool {
				return p.Prediction.RadiusMeters > 0 &&
					geo.BufferIntersects(p.Prediction.Path, p.Prediction.RadiusMeters, p.Glider.Route)
			},
		},
		{
			Name: "in-range",
			Tier: TierInRange,
			Match: func(p *Pair) bool {
				return p.Prediction.RadiusMeters > 0 && p.DistanceKm*1000 < p.Prediction.RadiusMeters
			},
		},
		{
			Name: "stationary",
			Tier: TierStationary,
			Match: func(p *Pair) bool {
				return p.Vessel.SOG.Is(0)
			},
		},
		{
			Name: "proximity",
			Tier: TierProximity,
			Match: func(p *Pair) bool {
				return p.DistanceKm < proximityKm
			},
		},
		{
			Name: "allow-list",
			Tier: TierAllowListed,
			Match: func(p *Pair) bool {
				return allow[p.Vessel.MMSI]
			},
		},
	}}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(set, candidates []string) bool {
	for _, c := range candidates {
		if contains(set, c) {
			return true
		}
	}
	return false
}
