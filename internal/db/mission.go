package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/gliders"
)

// MissionCleanup reports what CleanupMission removed.
type MissionCleanup struct {
	Glider           string    `json:"glider"`
	MissionEnd       time.Time `json:"mission_end"`
	ThreatsDeleted   int64     `json:"threats_deleted"`
	FixesPruned      int       `json:"fixes_pruned"`
	WaypointsRemoved bool      `json:"waypoints_removed"`
}

// CleanupMission clears a recovered glider out of the history and the
// snapshot files. Threat rows observed after end are deleted. Fixes at or
// before end are dropped so the next deployment starts with a fresh track.
// The waypoint plan is removed when removeWaypoints is set.
func (db *DB) CleanupMission(ctx context.Context, store *gliders.Store, glider string, end time.Time, removeWaypoints bool) (*MissionCleanup, error) {
	res := &MissionCleanup{
		Glider:     gliders.NormalizeName(glider),
		MissionEnd: end.UTC(),
	}

	deleted, err := db.DeleteGliderThreatsAfter(ctx, glider, end)
	if err != nil {
		return nil, err
	}
	res.ThreatsDeleted = deleted

	if store != nil {
		pruned, err := store.PruneFixesBefore(glider, end)
		if err != nil {
			return res, fmt.Errorf("failed to prune fixes for %s: %w", res.Glider, err)
		}
		res.FixesPruned = pruned

		if removeWaypoints {
			removed, err := store.RemoveWaypoints(glider)
			if err != nil {
				return res, fmt.Errorf("failed to remove waypoints for %s: %w", res.Glider, err)
			}
			res.WaypointsRemoved = removed
		}
	}

	log.Printf("Mission cleanup for %s at %s: threats_deleted=%d fixes_pruned=%d waypoints_removed=%t",
		res.Glider, res.MissionEnd.Format(time.RFC3339), res.ThreatsDeleted, res.FixesPruned, res.WaypointsRemoved)
	return res, nil
}
