package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
)

var locationColumns = []string{
	"mmsi", "latitude", "longitude", "sog", "cog", "rot", "heading",
	"nav_stat", "updated_unix", "fetched_unix",
}

// AppendLocations stores the kinematic part of each vessel and collapses
// rows that repeat an earlier report. Vessels that fail validation are
// logged and skipped. It returns the number of new rows.
func (db *DB) AppendLocations(ctx context.Context, vessels []ais.Vessel) (int64, error) {
	if len(vessels) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	stmt, err := tx.PrepareContext(ctx, insertStatement("locations", locationColumns))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, v := range vessels {
		if err := v.Validate(); err != nil {
			log.Printf("Skipping location report for %d: %v", v.MMSI, err)
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			v.MMSI, v.Position.Lat, v.Position.Lon,
			v.SOG.NullFloat64(), v.COG.NullFloat64(), v.ROT.NullFloat64(), v.Heading.NullFloat64(),
			v.NavStat, unixSeconds(v.UpdatedAt), unixSeconds(v.FetchedAt),
		); err != nil {
			return 0, fmt.Errorf("failed to insert location for %d: %w", v.MMSI, err)
		}
		inserted++
	}
	if inserted == 0 {
		return 0, nil
	}

	// Refetching the feed returns the same report until the vessel sends a
	// new one; those rows differ only in fetched_unix.
	removed, err := dedupe(ctx, tx, "locations", []string{
		"mmsi", "latitude", "longitude", "sog", "cog", "rot", "heading", "nav_stat", "updated_unix",
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted - removed, nil
}

// DeleteLocationsBefore removes location rows last updated before cutoff.
func (db *DB) DeleteLocationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM locations WHERE updated_unix < ?`, unixSeconds(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old locations: %w", err)
	}
	return res.RowsAffected()
}

// UpsertMeta stores the latest static and voyage data of a vessel.
func (db *DB) UpsertMeta(ctx context.Context, mmsi int64, m ais.Meta) error {
	var dests [ais.MaxDestinationRegions]string
	copy(dests[:], (ais.Vessel{Meta: m}).DestinationRegions())

	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO meta (
			mmsi, name, call_sign, ship_type, draught, destination, eta_unix,
			destination_one_region, destination_two_region, destination_three_region,
			updated_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mmsi) DO UPDATE SET
			name = excluded.name,
			call_sign = excluded.call_sign,
			ship_type = excluded.ship_type,
			draught = excluded.draught,
			destination = excluded.destination,
			eta_unix = excluded.eta_unix,
			destination_one_region = excluded.destination_one_region,
			destination_two_region = excluded.destination_two_region,
			destination_three_region = excluded.destination_three_region,
			updated_unix = excluded.updated_unix
	`,
		mmsi, m.Name, m.CallSign, m.ShipType, m.Draught.NullFloat64(), m.Destination, nullUnix(m.ETA),
		dests[0], dests[1], dests[2],
		unixSeconds(updated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert meta for %d: %w", mmsi, err)
	}
	return nil
}

// LatestVessels returns the most recent report of every vessel updated at or
// after since, joined with its metadata. Track holds the earlier reports at
// or after trackSince, oldest first.
func (db *DB) LatestVessels(ctx context.Context, since, trackSince time.Time) ([]ais.Vessel, error) {
	rows, err := db.QueryContext(ctx, `
		WITH latest AS (
			SELECT
				l.*,
				ROW_NUMBER() OVER (
					PARTITION BY l.mmsi
					ORDER BY l.updated_unix DESC, l.fetched_unix DESC
				) AS rownum
			FROM
				locations l
			WHERE
				l.updated_unix >= ?
		)
		SELECT
			latest.mmsi,
			latest.latitude,
			latest.longitude,
			latest.sog,
			latest.cog,
			latest.rot,
			latest.heading,
			latest.nav_stat,
			latest.updated_unix,
			latest.fetched_unix,
			COALESCE(m.name, ''),
			COALESCE(m.call_sign, ''),
			COALESCE(m.ship_type, 0),
			m.draught,
			COALESCE(m.destination, ''),
			m.eta_unix,
			COALESCE(m.destination_one_region, ''),
			COALESCE(m.destination_two_region, ''),
			COALESCE(m.destination_three_region, ''),
			m.updated_unix
		FROM
			latest
			LEFT JOIN meta m ON m.mmsi = latest.mmsi
		WHERE
			latest.rownum = 1
		ORDER BY
			latest.mmsi
	`, unixSeconds(since))
	if err != nil {
		return nil, err
	}

	var vessels []ais.Vessel
	for rows.Next() {
		var (
			v                         ais.Vessel
			sog, cog, rot, heading    sql.NullFloat64
			updated, fetched          float64
			draught, eta, metaUpdated sql.NullFloat64
			d1, d2, d3                string
		)
		if err := rows.Scan(
			&v.MMSI, &v.Position.Lat, &v.Position.Lon,
			&sog, &cog, &rot, &heading,
			&v.NavStat, &updated, &fetched,
			&v.Meta.Name, &v.Meta.CallSign, &v.Meta.ShipType, &draught,
			&v.Meta.Destination, &eta, &d1, &d2, &d3, &metaUpdated,
		); err != nil {
			rows.Close()
			return nil, err
		}
		v.SOG = ais.FromNull(sog)
		v.COG = ais.FromNull(cog)
		v.ROT = ais.FromNull(rot)
		v.Heading = ais.FromNull(heading)
		v.UpdatedAt = fromUnixSeconds(updated)
		v.FetchedAt = fromUnixSeconds(fetched)
		v.Meta.Draught = ais.FromNull(draught)
		if eta.Valid {
			v.Meta.ETA = fromUnixSeconds(eta.Float64)
		}
		if metaUpdated.Valid {
			v.Meta.UpdatedAt = fromUnixSeconds(metaUpdated.Float64)
		}
		for _, d := range []string{d1, d2, d3} {
			if d != "" {
				v.Meta.DestinationRegions = append(v.Meta.DestinationRegions, d)
			}
		}
		vessels = append(vessels, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(vessels) == 0 {
		return nil, nil
	}

	tracks, err := db.tracksSince(ctx, trackSince)
	if err != nil {
		return nil, err
	}
	for i := range vessels {
		for _, tp := range tracks[vessels[i].MMSI] {
			if tp.updated.Before(vessels[i].UpdatedAt) {
				vessels[i].Track = append(vessels[i].Track, tp.point)
			}
		}
	}
	return vessels, nil
}

type trackPoint struct {
	point   geo.Point
	updated time.Time
}

func (db *DB) tracksSince(ctx context.Context, since time.Time) (map[int64][]trackPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			mmsi, latitude, longitude, updated_unix
		FROM
			locations
		WHERE
			updated_unix >= ?
		GROUP BY
			mmsi, updated_unix
		ORDER BY
			mmsi, updated_unix
	`, unixSeconds(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make(map[int64][]trackPoint)
	for rows.Next() {
		var (
			mmsi    int64
			p       geo.Point
			updated float64
		)
		if err := rows.Scan(&mmsi, &p.Lat, &p.Lon, &updated); err != nil {
			return nil, err
		}
		tracks[mmsi] = append(tracks[mmsi], trackPoint{point: p, updated: fromUnixSeconds(updated)})
	}
	return tracks, rows.Err()
}

// dedupe keeps one row of every group of rows equal across cols.
func dedupe(ctx context.Context, tx *sql.Tx, table string, cols []string) (int64, error) {
	q := fmt.Sprintf(`
		DELETE FROM %s
		WHERE rowid NOT IN (
			SELECT MIN(rowid) FROM %s GROUP BY %s
		)`, table, table, strings.Join(cols, ", "))
	res, err := tx.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to deduplicate %s: %w", table, err)
	}
	return res.RowsAffected()
}

func insertStatement(table string, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		// ErrTxDone means transaction was already committed/rolled back
		log.Printf("warning: failed to rollback transaction: %v", err)
	}
}
