// Command mission-cleanup removes a recovered glider's threat history after
// its mission end and optionally drops its waypoint plan.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/db"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
)

func main() {
	var (
		dbPath          string
		glider          string
		endStr          string
		positionsPath   string
		waypointsPath   string
		removeWaypoints bool
		historyOnly     bool
	)
	flag.StringVar(&dbPath, "db", "glider_threats.db", "path to sqlite db")
	flag.StringVar(&glider, "glider", "", "glider name")
	flag.StringVar(&endStr, "end", "", "mission end time (RFC3339)")
	flag.StringVar(&positionsPath, "positions", gliders.PositionsFile, "glider positions snapshot")
	flag.StringVar(&waypointsPath, "waypoints", gliders.WaypointsFile, "glider waypoint plans")
	flag.BoolVar(&removeWaypoints, "remove-waypoints", false, "also remove the glider's waypoint plan")
	flag.BoolVar(&historyOnly, "history-only", false, "only delete threat rows; leave the snapshot files alone")
	flag.Parse()

	if glider == "" || endStr == "" {
		log.Fatalf("glider and end must be provided")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		log.Fatalf("invalid end: %v", err)
	}

	dbConn, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	var store *gliders.Store
	if !historyOnly {
		store = gliders.NewStore(positionsPath, waypointsPath)
	}

	res, err := dbConn.CleanupMission(context.Background(), store, glider, end, removeWaypoints)
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
	if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
		log.Fatalf("write result: %v", err)
	}
}
