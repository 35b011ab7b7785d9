package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/feeddb"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/app"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/appconf"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/config"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/feed"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/planner"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/realtime"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/restapi"
)

func main() {
	var configPath string
	var port int
	var feedURL string

	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.IntVar(&port, "port", 0, "API server port (overrides config)")
	flag.StringVar(&feedURL, "feed-url", "", "Static transit feed zip URL or local path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if feedURL != "" {
		cfg.Feed.SourceURL = feedURL
	}

	var logger *slog.Logger
	if cfg.Log.File != "" {
		logger = logging.NewRotatingLogger(cfg.Log.File, slog.LevelInfo)
	} else {
		logger = logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)
	}
	slog.SetDefault(logger)

	env := appconf.EnvFlagToEnvironment(cfg.Server.Env)

	var cache feed.SnapshotCache
	if cfg.Feed.CachePath != "" {
		client, err := feeddb.NewClient(feeddb.NewConfig(cfg.Feed.CachePath, env, false))
		if err != nil {
			logger.Error("failed to open snapshot cache, continuing without it", "error", err)
		} else {
			cache = client
			defer logging.SafeCloseWithLogging(client, logger, "snapshot_cache")
		}
	}

	ingestor := feed.NewIngestor(cfg.Feed.SourceURL, logger)
	store := feed.NewStore(ingestor, cache, logger)

	ctx := context.Background()
	if !store.WarmStart(ctx, cfg.Feed.MaxCacheAge) {
		if err := store.Ingest(ctx); err != nil {
			// Keep serving: the heuristic planner path still works, and a
			// later refresh may succeed.
			logger.Error("initial feed ingestion failed", "error", err)
		}
	}
	if cfg.Feed.RefreshInterval > 0 {
		store.StartBackgroundRefresh(cfg.Feed.RefreshInterval)
	}
	defer store.Shutdown()

	var liveClient *realtime.Client
	var reconciler *realtime.Reconciler
	realtimeConfig := realtime.Config{
		TripUpdatesURL:      cfg.Realtime.TripUpdatesURL,
		VehiclePositionsURL: cfg.Realtime.VehiclePositionsURL,
		AuthHeaderKey:       cfg.Realtime.AuthHeaderKey,
		AuthHeaderValue:     cfg.Realtime.AuthHeaderValue,
		RefreshInterval:     cfg.Realtime.RefreshInterval,
	}
	if realtimeConfig.Enabled() {
		liveClient = realtime.NewClient(realtimeConfig, logger)
		liveClient.Start(ctx)
		defer liveClient.Shutdown()
		reconciler = realtime.NewReconciler(liveClient, logger)
	}

	application := &app.Application{
		Config:    app.Config{Port: cfg.Server.Port, Env: env},
		Logger:    logger,
		FeedStore: store,
		Realtime:  liveClient,
		Planner:   planner.New(store, reconciler, nil, logger),
	}

	api := restapi.NewRestAPI(application)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		logger.Info("shutting down server", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", env.String())
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if err := <-shutdownErr; err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
