package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/alert"
	"github.com/eervaisa/FMI-Gliders/internal/api"
	"github.com/eervaisa/FMI-Gliders/internal/config"
	"github.com/eervaisa/FMI-Gliders/internal/db"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "glider_threats.db", "Path to the SQLite history database")
	configPath    = flag.String("config", "", "Engine config JSON (defaults when empty)")
	positionsPath = flag.String("positions", gliders.PositionsFile, "Glider positions snapshot")
	waypointsPath = flag.String("waypoints", gliders.WaypointsFile, "Glider waypoint plans")
	natsURL       = flag.String("nats", "", "NATS server URL for threat alerts (disabled when empty)")
	natsSubject   = flag.String("nats-subject", alert.DefaultSubjectPrefix, "Subject prefix for threat alerts")
	natsStream    = flag.String("nats-stream", alert.DefaultStream, "JetStream stream for threat alerts")
	disabled      = flag.Bool("disable-worker", false, "Start with the periodic worker paused")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n       %s [flags] migrate <action>\n\nFlags:\n", os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func loadConfig(path string) (*config.EngineConfig, error) {
	if path == "" {
		return config.DefaultEngineConfig(), nil
	}
	return config.LoadEngineConfig(path)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("glider-watch %s", version.Get())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	metrics, err := monitoring.NewRunCollector(nil)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := db.NewConfiguredWorker(database, cfg, gliders.NewStore(*positionsPath, *waypointsPath))
	worker.Metrics = metrics

	if *natsURL != "" {
		pub, closeNATS, err := alert.Connect(ctx, *natsURL, alert.Options{
			Stream:        *natsStream,
			SubjectPrefix: *natsSubject,
			ClientName:    "glider-watch",
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer closeNATS()
		worker.Publisher = pub
		log.Printf("Publishing threat alerts to %s (stream %s)", *natsURL, *natsStream)
	}

	controller := db.NewThreatController(worker)
	if *disabled {
		controller.SetEnabled(false)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("threat worker stopped: %v", err)
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(controller, metrics.Gatherer(), cfg.GetRecencyCutoff()).ServeMux()
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("HTTP API listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
