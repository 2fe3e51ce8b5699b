package ais

import (
	"fmt"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/geo"
)

// MaxDestinationRegions is the number of resolved destination regions kept
// per vessel.
const MaxDestinationRegions = 3

// Meta is the static and voyage data a vessel broadcasts.
type Meta struct {
	Name        string      `json:"name"`
	CallSign    string      `json:"call_sign"`
	ShipType    int         `json:"ship_type"`
	Draught     Measurement `json:"draught"` // decimetres
	Destination string      `json:"destination"`
	ETA         time.Time   `json:"eta,omitempty"`
	UpdatedAt   time.Time   `json:"meta_updated_at,omitempty"`

	// Destination regions resolved upstream from the destination string.
	DestinationRegions []string `json:"destination_regions,omitempty"`
}

// ShipTypeName returns the display name of the vessel's ship type.
func (m Meta) ShipTypeName() string {
	return ShipTypeName(m.ShipType)
}

// Vessel is one observed vessel state at a point in time.
type Vessel struct {
	MMSI      int64       `json:"mmsi"`
	Position  geo.Point   `json:"position"`
	SOG       Measurement `json:"sog"` // knots
	COG       Measurement `json:"cog"` // degrees
	ROT       Measurement `json:"rot"` // AIS rate of turn indicator
	Heading   Measurement `json:"heading"`
	NavStat   int         `json:"nav_stat"`
	UpdatedAt time.Time   `json:"updated_at"`
	FetchedAt time.Time   `json:"fetched_at"`

	// Region is the named sea area of Position. Empty until classified.
	Region string `json:"region,omitempty"`

	// Track holds earlier observed positions, oldest first.
	Track []geo.Point `json:"track,omitempty"`

	Meta Meta `json:"meta"`
}

// Validate rejects vessels without a usable position.
func (v Vessel) Validate() error {
	if err := v.Position.Validate(); err != nil {
		return fmt.Errorf("vessel %d: %w", v.MMSI, err)
	}
	return nil
}

// DestinationRegions returns at most MaxDestinationRegions non-empty
// destination regions.
func (v Vessel) DestinationRegions() []string {
	out := make([]string, 0, MaxDestinationRegions)
	for _, r := range v.Meta.DestinationRegions {
		if r == "" {
			continue
		}
		out = append(out, r)
		if len(out) == MaxDestinationRegions {
			break
		}
	}
	return out
}
