// Command threats-run performs a single classification run and exits. It is
// meant for cron style scheduling next to an external AIS fetcher.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/alert"
	"github.com/eervaisa/FMI-Gliders/internal/config"
	"github.com/eervaisa/FMI-Gliders/internal/db"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
)

func main() {
	var (
		dbPath        string
		configPath    string
		positionsPath string
		waypointsPath string
		locationsPath string
		metadataPath  string
		natsURL       string
	)
	flag.StringVar(&dbPath, "db", "glider_threats.db", "path to sqlite db")
	flag.StringVar(&configPath, "config", "", "engine config JSON (defaults when empty)")
	flag.StringVar(&positionsPath, "positions", gliders.PositionsFile, "glider positions snapshot")
	flag.StringVar(&waypointsPath, "waypoints", gliders.WaypointsFile, "glider waypoint plans")
	flag.StringVar(&locationsPath, "locations", "", "Digitraffic AIS locations JSON to import before the run")
	flag.StringVar(&metadataPath, "metadata", "", "Digitraffic vessel metadata JSON to import before the run")
	flag.StringVar(&natsURL, "nats", "", "NATS server URL for threat alerts")
	flag.Parse()

	cfg := config.DefaultEngineConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadEngineConfig(configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := ingest(ctx, dbConn, locationsPath, metadataPath, time.Now()); err != nil {
		log.Fatalf("import: %v", err)
	}

	w := db.NewConfiguredWorker(dbConn, cfg, gliders.NewStore(positionsPath, waypointsPath))
	if natsURL != "" {
		pub, closeNATS, err := alert.Connect(ctx, natsURL, alert.Options{ClientName: "threats-run"})
		if err != nil {
			log.Fatalf("connect nats: %v", err)
		}
		defer closeNATS()
		w.Publisher = pub
	}

	sum, err := w.Execute(ctx, "once")
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		log.Fatalf("write summary: %v", err)
	}
}

// ingest imports vessel metadata and locations files when given. Metadata
// goes first so the run joins the freshest ship details.
func ingest(ctx context.Context, dbConn *db.DB, locationsPath, metadataPath string, fetched time.Time) error {
	if metadataPath != "" {
		f, err := os.Open(metadataPath)
		if err != nil {
			return err
		}
		list, err := ais.ReadMetadata(f)
		f.Close()
		if err != nil {
			return err
		}
		for _, m := range list {
			if err := dbConn.UpsertMeta(ctx, m.MMSI, m.Meta()); err != nil {
				return err
			}
		}
		log.Printf("imported metadata for %d vessels", len(list))
	}

	if locationsPath != "" {
		f, err := os.Open(locationsPath)
		if err != nil {
			return err
		}
		vessels, bad, err := ais.ReadLocations(f, fetched)
		f.Close()
		if err != nil {
			return err
		}
		for _, e := range bad {
			log.Printf("skipping location: %v", e)
		}
		n, err := dbConn.AppendLocations(ctx, vessels)
		if err != nil {
			return fmt.Errorf("append locations: %w", err)
		}
		log.Printf("imported %d new location reports (%d read, %d skipped)", n, len(vessels), len(bad))
	}
	return nil
}
