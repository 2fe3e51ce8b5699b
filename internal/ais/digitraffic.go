package ais

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/geo"
)

// LocationFeature is one entry of a Digitraffic AIS locations feature
// collection. Properties carry raw transponder values.
type LocationFeature struct {
	MMSI     int64 `json:"mmsi"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat
	} `json:"geometry"`
	Properties struct {
		SOG               float64 `json:"sog"`
		COG               float64 `json:"cog"`
		NavStat           int     `json:"navStat"`
		ROT               float64 `json:"rot"`
		Heading           float64 `json:"heading"`
		TimestampExternal int64   `json:"timestampExternal"` // unix ms
	} `json:"properties"`
}

// VesselMetadata is one entry of the Digitraffic vessel metadata list.
type VesselMetadata struct {
	MMSI        int64   `json:"mmsi"`
	Name        string  `json:"name"`
	CallSign    string  `json:"callSign"`
	ShipType    int     `json:"shipType"`
	Draught     float64 `json:"draught"`
	ETA         int     `json:"eta"`
	Destination string  `json:"destination"`
	Timestamp   int64   `json:"timestamp"` // unix ms
}

// Vessel decodes the feature. fetched is when the feed was read.
func (f LocationFeature) Vessel(fetched time.Time) (Vessel, error) {
	if len(f.Geometry.Coordinates) < 2 {
		return Vessel{}, fmt.Errorf("vessel %d: %w", f.MMSI, geo.ErrInvalidCoordinate)
	}
	p := f.Properties
	return Vessel{
		MMSI:      f.MMSI,
		Position:  geo.Point{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		SOG:       DecodeSOG(p.SOG),
		COG:       DecodeCOG(p.COG),
		ROT:       DecodeROT(p.ROT),
		Heading:   DecodeHeading(p.Heading),
		NavStat:   p.NavStat,
		UpdatedAt: time.UnixMilli(p.TimestampExternal).UTC(),
		FetchedAt: fetched.UTC(),
	}, nil
}

// Meta decodes the metadata entry. The ETA is resolved relative to the
// metadata timestamp.
func (m VesselMetadata) Meta() Meta {
	updated := time.UnixMilli(m.Timestamp).UTC()
	out := Meta{
		Name:        strings.TrimSpace(m.Name),
		CallSign:    strings.TrimSpace(m.CallSign),
		ShipType:    m.ShipType,
		Draught:     DecodeDraught(m.Draught),
		Destination: strings.TrimSpace(m.Destination),
		UpdatedAt:   updated,
	}
	if eta, ok := DecodeETA(m.ETA, updated); ok {
		out.ETA = eta
	}
	return out
}

// ReadLocations parses a Digitraffic locations feature collection.
// Features without coordinates are returned as errors alongside the valid
// vessels.
func ReadLocations(r io.Reader, fetched time.Time) ([]Vessel, []error, error) {
	var fc struct {
		Features []LocationFeature `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	var (
		vessels []Vessel
		bad     []error
	)
	for _, f := range fc.Features {
		v, err := f.Vessel(fetched)
		if err == nil {
			err = v.Validate()
		}
		if err != nil {
			bad = append(bad, err)
			continue
		}
		vessels = append(vessels, v)
	}
	return vessels, bad, nil
}

// ReadMetadata parses a Digitraffic vessel metadata list.
func ReadMetadata(r io.Reader) ([]VesselMetadata, error) {
	var list []VesselMetadata
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode vessel metadata: %w", err)
	}
	return list, nil
}
