package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/db"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	dbConn, err := db.NewDB(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	locations := writeFile(t, dir, "locations.json", `{"features": [
	  {"mmsi": 1, "geometry": {"coordinates": [23.29, 59.837]},
	   "properties": {"sog": 15, "cog": 90, "rot": 0, "heading": 511, "timestampExternal": 1699444680000}}
	]}`)
	metadata := writeFile(t, dir, "metadata.json", `[
	  {"mmsi": 1, "name": "BALTIC TRADER", "shipType": 70, "draught": 68, "eta": 1596, "timestamp": 1699444800000}
	]`)

	now := time.Date(2023, 11, 8, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	if err := ingest(ctx, dbConn, locations, metadata, now); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// Importing the same files again adds nothing.
	if err := ingest(ctx, dbConn, locations, metadata, now); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	vessels, err := dbConn.LatestVessels(ctx, now.Add(-time.Hour), now.Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("latest vessels: %v", err)
	}
	if len(vessels) != 1 {
		t.Fatalf("got %d vessels, want 1", len(vessels))
	}
	v := vessels[0]
	if v.Meta.Name != "BALTIC TRADER" || v.Meta.ShipType != 70 {
		t.Errorf("meta = %+v", v.Meta)
	}
	if v.Heading.Valid {
		t.Errorf("heading 511 should decode as unknown, got %v", v.Heading)
	}
	if len(v.Track) != 0 {
		t.Errorf("track = %v, want empty", v.Track)
	}
}

func TestIngest_MissingFile(t *testing.T) {
	dir := t.TempDir()
	dbConn, err := db.NewDB(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := ingest(context.Background(), dbConn, filepath.Join(dir, "nope.json"), "", time.Now()); err == nil {
		t.Fatal("expected error for missing locations file")
	}
}
