// Command intersection runs the two-street traffic light controller: it reads
// per-frame detections from a feed, switches the lights once a street has
// been favoured for enough consecutive frames and publishes the status file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/intersection/internal/api"
	"github.com/banshee-data/intersection/internal/config"
	"github.com/banshee-data/intersection/internal/controller"
	"github.com/banshee-data/intersection/internal/detection"
	"github.com/banshee-data/intersection/internal/feed"
	"github.com/banshee-data/intersection/internal/fsutil"
	"github.com/banshee-data/intersection/internal/lights"
	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/serialmux"
	"github.com/banshee-data/intersection/internal/status"
	"github.com/banshee-data/intersection/internal/version"
	"github.com/banshee-data/intersection/internal/zone"
)

var (
	configPath     = flag.String("config", "", "Path to controller JSON config (defaults built in)")
	feedSpec       = flag.String("feed", "udp::5600", "Detection feed: serial:<port>, udp:<addr>, pcap:<file> or file:<jsonl>")
	lightsDriver   = flag.String("lights", "gpio", "Lights driver: gpio, relay or none")
	relayPort      = flag.String("relay-port", "/dev/ttyUSB0", "Serial port of the relay board (-lights=relay)")
	listen         = flag.String("listen", ":8080", "HTTP listen address (empty disables the API)")
	statusPath     = flag.String("status-path", "", "Override status_path from the config")
	statusDB       = flag.String("status-db", "", "Override status_db_path from the config")
	logEvery       = flag.Int("log-every", 1, "Log per-frame counts every n frames")
	serialBaud     = flag.Int("serial-baud", serialmux.DefaultBaudRate, "Baud rate of a serial feed")
	pcapPort       = flag.Int("pcap-port", 0, "Only replay datagrams to this UDP port (0 = all)")
	realtime       = flag.Bool("realtime", false, "Replay pcap feeds with their captured timing")
	replayInterval = flag.Duration("replay-interval", 33*time.Millisecond, "Delay between frames of a file feed")
	devMode        = flag.Bool("dev", false, "Dev mode: no light hardware, status written to the working directory")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func loadConfig(path string) (*config.ControllerConfig, error) {
	if path == "" {
		return config.EmptyConfig(), nil
	}
	return config.LoadConfig(path)
}

// openLights builds the configured driver. An unknown driver is an error.
func openLights(driver string, cfg *config.ControllerConfig) (lights.Lights, error) {
	switch driver {
	case "gpio":
		g, err := lights.OpenGPIO(cfg.GetGPIOChip(), cfg.GetGPIOPins())
		if err != nil {
			return nil, err
		}
		return g, nil
	case "relay":
		r, err := lights.OpenRelay(*relayPort, cfg.GetRelayChannels())
		if err != nil {
			return nil, err
		}
		return r, nil
	case "none", "":
		return lights.NewDisabled(), nil
	default:
		return nil, fmt.Errorf("unknown lights driver %q (want gpio, relay or none)", driver)
	}
}

// openSinks returns the file sink, plus the SQLite snapshot store when dbPath
// is set. The store is nil otherwise.
func openSinks(path, dbPath, runID string) (status.Sink, *status.Store, error) {
	file := status.NewFileSink(fsutil.OSFileSystem{}, path)
	if dbPath == "" {
		return file, nil, nil
	}
	store, err := status.OpenStore(dbPath, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open status db: %w", err)
	}
	return status.Multi{file, store}, store, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	log.Print(version.Get())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *statusPath != "" {
		cfg.StatusPath = statusPath
	}
	if *statusDB != "" {
		cfg.StatusDBPath = statusDB
	}
	driver := *lightsDriver
	outPath := cfg.GetStatusPath()
	if *devMode {
		driver = "none"
		if *statusPath == "" {
			abs, err := filepath.Abs(filepath.Base(outPath))
			if err != nil {
				log.Fatalf("failed to resolve dev status path: %v", err)
			}
			outPath = abs
		}
	}

	runID := uuid.NewString()
	log.Printf("run %s: status file %s", runID, outPath)

	sink, store, err := openSinks(outPath, cfg.GetStatusDBPath(), runID)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if store != nil {
		defer store.Close()
	}

	lts, err := openLights(driver, cfg)
	if err != nil {
		log.Fatalf("failed to open lights: %v", err)
	}
	// lights keep their last state after exit
	defer lts.Close()

	src, err := feed.Parse(*feedSpec, feed.Options{
		Serial:   serialmux.PortOptions{BaudRate: *serialBaud},
		PCAPPort: *pcapPort,
		Realtime: *realtime,
		Interval: *replayInterval,
	})
	if err != nil {
		log.Fatalf("failed to open feed: %v", err)
	}

	metrics := monitoring.NewMetrics()
	ctrl := controller.New(controller.Options{
		Filter:       detection.NewFilter(cfg.GetTargetLabels(), cfg.GetConfidenceThreshold()),
		Classifier:   zone.NewClassifier(cfg.GetZones()),
		Initial:      cfg.GetInitialStreet(),
		Threshold:    cfg.GetDebounceFrames(),
		Sink:         sink,
		Lights:       lts,
		Metrics:      metrics,
		WriteTimeout: cfg.GetStatusWriteTimeout(),
		LogEvery:     *logEvery,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl.Start(ctx)

	var wg sync.WaitGroup

	// frame loop; a finite feed ending does not stop the API
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("reading frames from %s", src)
		if err := src.Run(ctx, ctrl.HandlePayload); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("feed stopped: %v", err)
		}
		log.Printf("feed routine terminated after %d frames", ctrl.Snapshot().FramesProcessed)
		if *listen == "" {
			stop()
		}
	}()

	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := api.NewServer(api.Config{
				Controller: ctrl,
				Metrics:    metrics.Handler(),
				RunID:      runID,
				Feed:       src.String(),
				Lights:     driver,
			}).ServeMux()
			if ss, ok := src.(*feed.SerialSource); ok {
				ss.Mux().AttachAdminRoutes(mux)
			}
			if store != nil {
				if err := store.AttachAdminRoutes(mux); err != nil {
					log.Printf("failed to attach tailsql: %v", err)
				}
			}

			server := &http.Server{
				Addr:    *listen,
				Handler: api.LoggingMiddleware(mux),
			}
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}
			log.Printf("HTTP server routine stopped")
		}()
	}

	wg.Wait()
	if ss, ok := src.(*feed.SerialSource); ok {
		ss.Mux().Close()
	}
	log.Printf("Graceful shutdown complete")
}
