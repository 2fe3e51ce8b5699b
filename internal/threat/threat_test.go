package threat

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/predict"
	"github.com/eervaisa/FMI-Gliders/internal/regions"
)

var (
	porkkala      = geo.Point{Lat: 59.837, Lon: 23.29}
	helsinki      = geo.Point{Lat: 60.15, Lon: 24.95}
	bothnianSea   = geo.Point{Lat: 62.0, Lon: 19.0}
	bothnianBay   = geo.Point{Lat: 65.0, Lon: 23.0}
	archipelago   = geo.Point{Lat: 60.2, Lon: 21.0}
	southernBalt  = geo.Point{Lat: 55.0, Lon: 15.0}
	observedAt    = time.Date(2023, 11, 8, 12, 0, 0, 0, time.UTC)
	locationAtObs = observedAt.Add(-2 * time.Minute)
)

func init() {
	monitoring.SetLogger(nil)
}

func vessel(mmsi int64, pos geo.Point, sog, cog, rot ais.Measurement, dests ...string) ais.Vessel {
	return ais.Vessel{
		MMSI:      mmsi,
		Position:  pos,
		SOG:       sog,
		COG:       cog,
		ROT:       rot,
		UpdatedAt: locationAtObs,
		FetchedAt: observedAt,
		Meta: ais.Meta{
			Name:               "TEST VESSEL",
			ShipType:           70,
			Destination:        "FIHEL",
			DestinationRegions: dests,
		},
	}
}

func glider(name string, pos geo.Point, route ...geo.Point) gliders.Glider {
	return gliders.Glider{Name: name, Position: pos, Route: route}
}

func runOne(t *testing.T, v ais.Vessel, g gliders.Glider) Tier {
	t.Helper()
	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{v}, []gliders.Glider{g})
	require.Empty(t, res.Rejected)
	require.Len(t, res.Vessels, 1)
	return res.Vessels[0].MaxTier
}

func TestEngine_EndToEnd(t *testing.T) {
	v := vessel(1, porkkala, ais.Known(15), ais.Known(90), ais.Known(0))
	g := glider("Uivelo", porkkala, porkkala)

	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{v}, []gliders.Glider{g})
	require.Len(t, res.Vessels, 1)
	cv := res.Vessels[0]
	assert.GreaterOrEqual(t, int(cv.MaxTier), int(TierPathCrossing))
	assert.Equal(t, TierProximity, cv.MaxTier)
	assert.Equal(t, "purple", cv.Colour)
	assert.Len(t, cv.Prediction.Path, 60)
	assert.Greater(t, cv.Prediction.RadiusMeters, 0.0)
	assert.Equal(t, regions.GulfOfFinland, cv.Region)

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, int64(1), r.MMSI)
	assert.Equal(t, "Uivelo", r.GliderName)
	assert.Equal(t, porkkala.Lat, r.GliderLatitude)
	assert.Equal(t, porkkala.Lon, r.GliderLongitude)
	assert.Equal(t, TierProximity, r.Tier)
	assert.Equal(t, "purple", r.Colour)
	assert.Equal(t, "Cargo", r.ShipTypeName)
	assert.Equal(t, observedAt, r.ObservedAt)
	assert.Equal(t, regions.GulfOfFinland, r.Region)
}

func TestEngine_LastRuleWins(t *testing.T) {
	// Same region as the glider and within 10 km: proximity overrides region.
	v := vessel(2, helsinki, ais.Unknown, ais.Unknown, ais.Unknown)
	g := glider("Uivelo", geo.Project(helsinki, 45, 5))
	assert.Equal(t, TierProximity, runOne(t, v, g))
}

func TestEngine_SharedRegionOnly(t *testing.T) {
	v := vessel(3, helsinki, ais.Unknown, ais.Unknown, ais.Unknown)
	g := glider("Uivelo", porkkala)
	assert.Equal(t, TierSharedRegion, runOne(t, v, g))

	// A destination region on the glider's route counts as well.
	v = vessel(3, bothnianBay, ais.Unknown, ais.Unknown, ais.Unknown, regions.GulfOfFinland)
	assert.Equal(t, TierSharedRegion, runOne(t, v, g))
}

func TestEngine_Stationary(t *testing.T) {
	v := vessel(4, helsinki, ais.Known(0), ais.Known(90), ais.Known(0))

	// Far from the glider but sharing its region.
	assert.Equal(t, TierStationary, runOne(t, v, glider("Uivelo", porkkala)))

	// The path and range rules never match a stationary vessel.
	p := &Pair{
		Vessel:     v,
		Prediction: predict.Predict(v.Position, v.SOG, v.COG, v.ROT),
		Glider:     glider("Uivelo", helsinki, helsinki),
	}
	assert.Equal(t, 0.0, p.Prediction.RadiusMeters)
	for _, r := range NewCascade(CascadeOptions{ProximityKm: DefaultProximityKm}).Rules {
		if r.Tier == TierPathCrossing || r.Tier == TierInRange {
			assert.False(t, r.Match(p), "rule %s matched a stationary vessel", r.Name)
		}
	}

	// Close by, proximity still applies.
	assert.Equal(t, TierProximity, runOne(t, v, glider("Uivelo", helsinki)))
}

func TestEngine_UnknownSpeedIsNotStationary(t *testing.T) {
	v := vessel(5, southernBalt, ais.Unknown, ais.Known(90), ais.Known(0))
	assert.Equal(t, TierNone, runOne(t, v, glider("Uivelo", porkkala)))
}

func TestEngine_AllowList(t *testing.T) {
	v := vessel(230145000, southernBalt, ais.Unknown, ais.Unknown, ais.Unknown)
	assert.Equal(t, TierAllowListed, runOne(t, v, glider("Uivelo", bothnianBay)))

	res := NewEngine(EngineOptions{AllowList: []int64{42}}).Run(
		[]ais.Vessel{vessel(42, porkkala, ais.Known(15), ais.Known(90), ais.Known(0))},
		[]gliders.Glider{glider("Uivelo", porkkala)},
	)
	assert.Equal(t, TierAllowListed, res.Vessels[0].MaxTier)
	assert.Equal(t, "#26f018", res.Vessels[0].Colour)
	assert.Empty(t, res.Records, "allow-listed vessels are not recorded")
}

func TestEngine_InRange(t *testing.T) {
	// 15 knots covers 27.78 km in an hour; the glider is 20 km astern.
	v := vessel(6, porkkala, ais.Known(15), ais.Known(90), ais.Known(0))
	g := glider("Uivelo", geo.Project(porkkala, 270, 20))
	tier := runOne(t, v, g)
	assert.Equal(t, TierInRange, tier)
}

func TestEngine_PathCrossing(t *testing.T) {
	// Glider 35 km east, its route crossing the vessel's predicted track.
	v := vessel(7, porkkala, ais.Known(15), ais.Known(90), ais.Known(0))
	gpos := geo.Project(porkkala, 90, 35)
	g := glider("Uivelo", gpos, geo.Project(gpos, 0, 5), geo.Project(gpos, 180, 5))
	g.RouteRegions = []string{"Nowhere"}
	assert.Equal(t, TierPathCrossing, runOne(t, v, g))
}

func TestEngine_Corridors(t *testing.T) {
	tests := []struct {
		name   string
		vessel geo.Point
		dest   string
		glider geo.Point
		want   Tier
	}{
		{"gulf to bothnian bay past bothnian sea", helsinki, regions.BothnianBay, bothnianSea, TierSharedRegion},
		{"bothnian bay to gulf past bothnian sea", bothnianBay, regions.GulfOfFinland, bothnianSea, TierSharedRegion},
		{"gulf to bothnian sea past archipelago", helsinki, regions.BothnianSea, archipelago, TierSharedRegion},
		{"bothnian sea to baltic past archipelago", bothnianSea, regions.BalticSea, archipelago, TierSharedRegion},
		{"saimaa to baltic past gulf", geo.Point{Lat: 61.5, Lon: 28.0}, regions.BalticSea, porkkala, TierSharedRegion},
		{"gulf to saimaa does not pass bothnian sea", helsinki, regions.SaimaaAndLaatokka, bothnianSea, TierNone},
		{"baltic to archipelago does not pass gulf", southernBalt, regions.ArchipelagoSea, geo.Point{Lat: 60.5, Lon: 27.0}, TierNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := vessel(8, tt.vessel, ais.Unknown, ais.Unknown, ais.Unknown, tt.dest)
			assert.Equal(t, tt.want, runOne(t, v, glider("Uivelo", tt.glider)))
		})
	}
}

func TestEngine_MaxAcrossGliders(t *testing.T) {
	v := vessel(9, helsinki, ais.Unknown, ais.Unknown, ais.Unknown)
	near := glider("Near", geo.Project(helsinki, 0, 3))
	far := glider("Far", bothnianBay)

	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{v}, []gliders.Glider{near, far})
	require.Len(t, res.Vessels, 1)
	assert.Equal(t, TierProximity, res.Vessels[0].MaxTier)

	require.Len(t, res.Observations, 2)
	assert.Equal(t, Observation{MMSI: 9, Glider: "Near", Tier: TierProximity}, res.Observations[0])
	assert.Equal(t, Observation{MMSI: 9, Glider: "Far", Tier: TierNone}, res.Observations[1])

	require.Len(t, res.Records, 1)
	assert.Equal(t, "Near", res.Records[0].GliderName)
}

func TestEngine_RecordsPerGlider(t *testing.T) {
	v := vessel(10, porkkala, ais.Unknown, ais.Unknown, ais.Unknown)
	a := glider("Koskelo", geo.Project(porkkala, 0, 2))
	b := glider("Uivelo", geo.Project(porkkala, 180, 2))

	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{v}, []gliders.Glider{a, b})
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Koskelo", res.Records[0].GliderName)
	assert.Equal(t, "Uivelo", res.Records[1].GliderName)
}

func TestEngine_RejectsInvalidRecords(t *testing.T) {
	good := vessel(11, helsinki, ais.Unknown, ais.Unknown, ais.Unknown)
	bad := vessel(12, geo.Point{Lat: math.NaN(), Lon: 24}, ais.Unknown, ais.Unknown, ais.Unknown)
	badGlider := glider("Broken", geo.Point{Lat: 120, Lon: 24})

	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{good, bad}, []gliders.Glider{glider("Uivelo", porkkala), badGlider})
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, "glider", res.Rejected[0].Kind)
	assert.Equal(t, "Broken", res.Rejected[0].ID)
	assert.ErrorIs(t, res.Rejected[0], geo.ErrInvalidCoordinate)
	assert.Equal(t, "vessel", res.Rejected[1].Kind)
	assert.Equal(t, "12", res.Rejected[1].ID)

	require.Len(t, res.Vessels, 1)
	assert.Equal(t, int64(11), res.Vessels[0].MMSI)
	require.Len(t, res.Gliders, 1)
	assert.Equal(t, []string{regions.GulfOfFinland}, res.Gliders[0].RouteRegions)
}

func TestEngine_NoGliders(t *testing.T) {
	res := NewEngine(EngineOptions{}).Run([]ais.Vessel{
		vessel(230149210, porkkala, ais.Unknown, ais.Unknown, ais.Unknown),
		vessel(13, porkkala, ais.Known(10), ais.Known(0), ais.Known(0)),
	}, nil)
	require.Len(t, res.Vessels, 2)
	assert.Equal(t, TierAllowListed, res.Vessels[0].MaxTier)
	assert.Equal(t, TierNone, res.Vessels[1].MaxTier)
	assert.Empty(t, res.Records)
	assert.Equal(t, map[Tier]int{TierAllowListed: 1, TierNone: 1}, res.TierCounts())
}

func TestEngine_Idempotent(t *testing.T) {
	vessels := []ais.Vessel{
		vessel(1, porkkala, ais.Known(15), ais.Known(90), ais.Known(0)),
		vessel(2, helsinki, ais.Known(0), ais.Unknown, ais.Unknown),
		vessel(3, bothnianBay, ais.Known(12), ais.Known(180), ais.Known(-20), regions.GulfOfFinland),
	}
	gs := []gliders.Glider{glider("Uivelo", porkkala, porkkala, helsinki)}

	e := NewEngine(EngineOptions{})
	first := e.Run(vessels, gs)
	second := e.Run(vessels, gs)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestFold(t *testing.T) {
	acc := Fold([]Observation{
		{MMSI: 1, Tier: TierSharedRegion},
		{MMSI: 1, Tier: TierProximity},
		{MMSI: 1, Tier: TierStationary},
		{MMSI: 2, Tier: TierNone},
	})
	assert.Equal(t, Accumulator{1: TierProximity, 2: TierNone}, acc)

	acc.Observe(2, TierInRange)
	acc.Observe(2, TierSharedRegion)
	assert.Equal(t, TierInRange, acc[2])
}

func TestTier(t *testing.T) {
	for _, tier := range Tiers {
		assert.Equal(t, tier == TierPathCrossing || tier == TierInRange || tier == TierProximity, tier.Actionable(), tier.String())
	}
	assert.Equal(t, "#8ED6FF", TierNone.Colour())
	assert.Equal(t, "orange", TierPathCrossing.Colour())
	assert.Equal(t, "red", TierInRange.Colour())
	assert.Equal(t, "grey", TierStationary.Colour())
	assert.Equal(t, "tier-7", Tier(7).String())
}
