package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
)

var threatColumns = []string{
	"mmsi", "name", "call_sign", "ship_type", "ship_type_name", "draught", "destination", "eta_unix",
	"latitude", "longitude", "sog", "cog", "rot", "heading", "nav_stat",
	"region", "destination_one_region", "destination_two_region", "destination_three_region",
	"location_updated_unix", "observed_unix", "distance_km",
	"glider_name", "glider_latest_lat", "glider_latest_lon",
	"tier", "class_colour",
}

// AppendResult reports what a threat append changed.
type AppendResult struct {
	Appended     int64 `json:"appended"`
	Deduplicated int64 `json:"deduplicated"`
}

// AppendThreats inserts records and then removes every row that duplicates
// another across all columns. Both steps run in one transaction; on error
// nothing is written.
func (db *DB) AppendThreats(ctx context.Context, records []threat.Record) (AppendResult, error) {
	var res AppendResult
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer rollback(tx)

	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertStatement("threats", threatColumns))
		if err != nil {
			return res, err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, threatArgs(r)...); err != nil {
				return res, fmt.Errorf("failed to insert threat for %d/%s: %w", r.MMSI, r.GliderName, err)
			}
			res.Appended++
		}
	}

	removed, err := dedupe(ctx, tx, "threats", threatColumns)
	if err != nil {
		return res, err
	}
	res.Deduplicated = removed

	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

func threatArgs(r threat.Record) []any {
	var eta sql.NullFloat64
	if r.ETA != nil {
		eta = nullUnix(*r.ETA)
	}
	return []any{
		r.MMSI, r.Name, r.CallSign, r.ShipType, r.ShipTypeName, r.Draught.NullFloat64(), r.Destination, eta,
		r.Latitude, r.Longitude, r.SOG.NullFloat64(), r.COG.NullFloat64(), r.ROT.NullFloat64(), r.Heading.NullFloat64(), r.NavStat,
		r.Region, r.DestinationOne, r.DestinationTwo, r.DestinationThree,
		unixSeconds(r.LocationUpdatedAt), unixSeconds(r.ObservedAt), r.DistanceKm,
		r.GliderName, r.GliderLatitude, r.GliderLongitude,
		int(r.Tier), r.Colour,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanThreat(s scanner) (threat.Record, error) {
	var (
		r                             threat.Record
		draught, eta                  sql.NullFloat64
		sog, cog, rot, heading        sql.NullFloat64
		locationUpdated, observedUnix float64
		tier                          int
	)
	err := s.Scan(
		&r.MMSI, &r.Name, &r.CallSign, &r.ShipType, &r.ShipTypeName, &draught, &r.Destination, &eta,
		&r.Latitude, &r.Longitude, &sog, &cog, &rot, &heading, &r.NavStat,
		&r.Region, &r.DestinationOne, &r.DestinationTwo, &r.DestinationThree,
		&locationUpdated, &observedUnix, &r.DistanceKm,
		&r.GliderName, &r.GliderLatitude, &r.GliderLongitude,
		&tier, &r.Colour,
	)
	if err != nil {
		return r, err
	}
	r.Draught = ais.FromNull(draught)
	if eta.Valid {
		t := fromUnixSeconds(eta.Float64)
		r.ETA = &t
	}
	r.SOG = ais.FromNull(sog)
	r.COG = ais.FromNull(cog)
	r.ROT = ais.FromNull(rot)
	r.Heading = ais.FromNull(heading)
	r.LocationUpdatedAt = fromUnixSeconds(locationUpdated)
	r.ObservedAt = fromUnixSeconds(observedUnix)
	r.Tier = threat.Tier(tier)
	return r, nil
}

// ThreatFilter narrows a threat history query. Zero fields match everything.
type ThreatFilter struct {
	Glider string
	Since  time.Time
	Limit  int
}

// Threats returns persisted records, newest observation first.
func (db *DB) Threats(ctx context.Context, f ThreatFilter) ([]threat.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Glider != "" {
		where = append(where, "glider_name = ?")
		args = append(args, gliders.NormalizeName(f.Glider))
	}
	if !f.Since.IsZero() {
		where = append(where, "observed_unix >= ?")
		args = append(args, unixSeconds(f.Since))
	}

	q := "SELECT " + strings.Join(threatColumns, ", ") + " FROM threats"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY observed_unix DESC, mmsi"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return db.queryThreats(ctx, q, args...)
}

// RecentThreats returns the latest record of every vessel whose most recent
// threat observation is at or after cutoff.
func (db *DB) RecentThreats(ctx context.Context, cutoff time.Time) ([]threat.Record, error) {
	q := `
		WITH ranked AS (
			SELECT
				` + strings.Join(threatColumns, ", ") + `,
				ROW_NUMBER() OVER (
					PARTITION BY mmsi
					ORDER BY observed_unix DESC, tier DESC
				) AS rownum
			FROM
				threats
		)
		SELECT
			` + strings.Join(threatColumns, ", ") + `
		FROM
			ranked
		WHERE
			rownum = 1
			AND observed_unix >= ?
		ORDER BY
			mmsi
	`
	return db.queryThreats(ctx, q, unixSeconds(cutoff))
}

func (db *DB) queryThreats(ctx context.Context, q string, args ...any) ([]threat.Record, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []threat.Record
	for rows.Next() {
		r, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountThreats returns the number of persisted threat rows.
func (db *DB) CountThreats(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threats`).Scan(&n)
	return n, err
}

// DeleteGliderThreatsAfter removes the glider's records observed after end.
// Used when a mission ends so later runs against a stale glider position do
// not stay in the history.
func (db *DB) DeleteGliderThreatsAfter(ctx context.Context, glider string, end time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM threats WHERE glider_name = ? AND observed_unix > ?`,
		gliders.NormalizeName(glider), unixSeconds(end),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete threats for %s: %w", glider, err)
	}
	return res.RowsAffected()
}
