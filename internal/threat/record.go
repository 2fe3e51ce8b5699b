package threat

import (
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
)

// Record is a persisted observation of an actionable tier. Rows are append
// only and identical rows are collapsed.
type Record struct {
	MMSI         int64           `json:"mmsi"`
	Name         string          `json:"name"`
	CallSign     string          `json:"call_sign"`
	ShipType     int             `json:"ship_type"`
	ShipTypeName string          `json:"ship_type_name"`
	Draught      ais.Measurement `json:"draught"`
	Destination  string          `json:"destination"`
	ETA          *time.Time      `json:"eta,omitempty"`

	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	SOG       ais.Measurement `json:"sog"`
	COG       ais.Measurement `json:"cog"`
	ROT       ais.Measurement `json:"rot"`
	Heading   ais.Measurement `json:"heading"`
	NavStat   int             `json:"nav_stat"`

	Region           string `json:"region"`
	DestinationOne   string `json:"destination_one_region"`
	DestinationTwo   string `json:"destination_two_region"`
	DestinationThree string `json:"destination_three_region"`

	LocationUpdatedAt time.Time `json:"location_updated_at"`
	ObservedAt        time.Time `json:"observed_at"`
	DistanceKm        float64   `json:"distance_km"`

	GliderName      string  `json:"glider_name"`
	GliderLatitude  float64 `json:"glider_latest_lat"`
	GliderLongitude float64 `json:"glider_latest_lon"`

	Tier   Tier   `json:"tier"`
	Colour string `json:"class_colour"`
}

// newRecord snapshots a classified pair.
func newRecord(p *Pair, tier Tier) Record {
	v := p.Vessel
	r := Record{
		MMSI:         v.MMSI,
		Name:         v.Meta.Name,
		CallSign:     v.Meta.CallSign,
		ShipType:     v.Meta.ShipType,
		ShipTypeName: v.Meta.ShipTypeName(),
		Draught:      v.Meta.Draught,
		Destination:  v.Meta.Destination,

		Latitude:  v.Position.Lat,
		Longitude: v.Position.Lon,
		SOG:       v.SOG,
		COG:       v.COG,
		ROT:       v.ROT,
		Heading:   v.Heading,
		NavStat:   v.NavStat,

		Region: p.VesselRegion,

		LocationUpdatedAt: v.UpdatedAt,
		ObservedAt:        v.FetchedAt,
		DistanceKm:        p.DistanceKm,

		GliderName:      p.Glider.Name,
		GliderLatitude:  p.Glider.Position.Lat,
		GliderLongitude: p.Glider.Position.Lon,

		Tier:   tier,
		Colour: tier.Colour(),
	}
	if !v.Meta.ETA.IsZero() {
		eta := v.Meta.ETA
		r.ETA = &eta
	}
	dests := [3]*string{&r.DestinationOne, &r.DestinationTwo, &r.DestinationThree}
	for i, d := range p.DestinationRegions {
		if i >= len(dests) {
			break
		}
		*dests[i] = d
	}
	return r
}
