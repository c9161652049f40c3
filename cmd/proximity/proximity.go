package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/proximity.report/internal/api"
	"github.com/banshee-data/proximity.report/internal/config"
	"github.com/banshee-data/proximity.report/internal/db"
	"github.com/banshee-data/proximity.report/internal/hub"
	"github.com/banshee-data/proximity.report/internal/landmark"
	"github.com/banshee-data/proximity.report/internal/landmark/camera"
	"github.com/banshee-data/proximity.report/internal/pipeline"
	"github.com/banshee-data/proximity.report/internal/timeutil"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a synthetic landmark source (no camera)")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "proximity.db", "Path to the SQLite database")
	cameraID   = flag.Int("camera", -1, "Camera device ID (overrides config)")
	modelPath  = flag.String("model", "", "Path to the YuNet face detection model (overrides config)")
	configPath = flag.String("config", "", "Path to a tuning config JSON file")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags win over the config file.
	if *cameraID >= 0 {
		cfg.CameraDevice = cameraID
	}
	if *modelPath != "" {
		cfg.ModelPath = modelPath
	}

	var factory pipeline.SourceFactory
	if *devMode {
		factory = func() (landmark.Source, error) {
			return landmark.NewSyntheticSource(
				timeutil.RealClock{},
				33*time.Millisecond, // ~30fps
				10*time.Second,
				cfg.GetInputWidth(),
			), nil
		}
	} else {
		factory = func() (landmark.Source, error) {
			return camera.NewSource(camera.Config{
				DeviceID:       cfg.GetCameraDevice(),
				ModelPath:      cfg.GetModelPath(),
				ScoreThreshold: cfg.GetScoreThreshold(),
				InputWidth:     cfg.GetInputWidth(),
				InputHeight:    cfg.GetInputHeight(),
			})
		}
	}

	p := pipeline.New(factory, pipeline.Config{
		ReadingInterval: cfg.GetReadingInterval(),
		ChartInterval:   cfg.GetChartInterval(),
	})

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	liveHub := hub.New()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the hub routine to fan live events out to websocket clients
	wg.Add(1)
	go func() {
		defer wg.Done()
		liveHub.Run()
		log.Print("hub routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(p, database, liveHub, cfg, nil).ServeMux()
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for shutdown, then release the capture pipeline and hub.
	<-ctx.Done()
	p.Stop()
	liveHub.Stop()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
