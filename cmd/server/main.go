package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/yegors/skytrack/internal/animation"
	"github.com/yegors/skytrack/internal/api"
	"github.com/yegors/skytrack/internal/config"
	"github.com/yegors/skytrack/internal/observability"
	"github.com/yegors/skytrack/internal/opensky"
	"github.com/yegors/skytrack/internal/tracker"
	"github.com/yegors/skytrack/internal/view"
	"github.com/yegors/skytrack/internal/websocket"
	"github.com/yegors/skytrack/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting skytrack server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		log.Error("Failed to initialize tracing", logger.Error(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(shutdownTracing, log)

	client := opensky.NewClient(opensky.Options{
		BaseURL:        cfg.OpenSky.BaseURL,
		Username:       cfg.OpenSky.Username,
		Password:       cfg.OpenSky.Password,
		ClientID:       cfg.OpenSky.ClientID,
		ClientSecret:   cfg.OpenSky.ClientSecret,
		TokenURL:       cfg.OpenSky.TokenURL,
		Timeout:        time.Duration(cfg.OpenSky.RequestTimeoutSecs) * time.Second,
		RouteCacheSize: cfg.OpenSky.RouteCacheSize,
		RouteCacheTTL:  time.Duration(cfg.OpenSky.RouteCacheTTLMins) * time.Minute,
	}, log)

	trackerService := tracker.NewService(client, tracker.Options{
		HistoryWindow: time.Duration(cfg.Tracker.AirportHistoryHours) * time.Hour,
		MagneticTrack: cfg.Tracker.MagneticTrack,
	}, nil, log)

	views := view.NewManager(trackerService, view.Config{
		Animation: animation.Config{
			Steps:     cfg.Animation.Steps,
			Duration:  time.Duration(cfg.Animation.DurationSecs) * time.Second,
			Threshold: cfg.Animation.FlightLimit,
		},
		RefreshInterval: time.Duration(cfg.Poller.IntervalMs) * time.Millisecond,
		AirportType:     cfg.Tracker.AirportType,
	}, nil, log)

	wsServer := websocket.NewServer(views, allowOrigin(cfg.Server.CORSAllowedOrigins), log)
	wsDone := make(chan struct{})
	go func() {
		defer close(wsDone)
		wsServer.Run(ctx)
	}()

	router := api.NewRouter(trackerService, wsServer, wsServer.HandleConnection, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		StaticDir:          cfg.Server.StaticDir,
	}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	// closing the clients tears down every view session
	cancel()
	<-wsDone

	log.Info("Server fully stopped", logger.Int("open_views", views.SessionCount()))
}

// allowOrigin mirrors the CORS setting for WebSocket upgrades
func allowOrigin(origins []string) func(string) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(origin string) bool {
		return slices.Contains(origins, origin)
	}
}
