package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"navigator.metromap.org/internal/app"
	"navigator.metromap.org/internal/appconf"
	"navigator.metromap.org/internal/farequote"
	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/navigator"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/realtime"
	"navigator.metromap.org/internal/tariff"
	"navigator.metromap.org/quotedb"
)

const (
	// Stop IDs from the GTFS feed are prefixed so they never collide with
	// the hand-drawn map assets.
	gtfsStopPrefix = "gtfs_"

	quoteCleanupInterval = time.Hour
	quoteMaxAge          = 7 * 24 * time.Hour
)

// buildNetwork loads every configured layer into one network.
func buildNetwork(ctx context.Context, cfg appconf.Config, logger *slog.Logger) (*network.Network, error) {
	b := network.NewBuilder(logger)

	sources := []struct {
		path  string
		layer network.Layer
	}{
		{cfg.MetroPath, network.Metro},
		{cfg.SuburbanPath, network.Suburban},
		{cfg.RiverTramPath, network.RiverTram},
	}
	for _, src := range sources {
		if src.path == "" {
			continue
		}
		if err := b.LoadFile(src.path, src.layer); err != nil {
			return nil, err
		}
	}

	if cfg.SuburbanGTFS != "" {
		err := b.LoadGTFS(ctx, cfg.SuburbanGTFS, network.Suburban, network.GTFSOptions{
			IDPrefix: gtfsStopPrefix,
			Tariff:   network.ExternalQuote(),
		})
		if err != nil {
			return nil, fmt.Errorf("error loading suburban GTFS: %w", err)
		}
	}

	return b.Build()
}

// buildApplication wires the navigator session and its optional fare quote
// and live position sources. The returned cleanup releases everything that
// was started.
func buildApplication(ctx context.Context, cfg appconf.Config, logger *slog.Logger) (*app.Application, func(), error) {
	layer, err := network.ParseLayer(cfg.ActiveLayer)
	if err != nil {
		return nil, nil, err
	}

	net, err := buildNetwork(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	application := &app.Application{
		Config: cfg,
		Logger: logger,
	}

	var quotes tariff.QuoteService
	if cfg.QuoteAPIKey != "" {
		store, err := quotedb.NewClient(quotedb.NewConfig(cfg.QuoteCachePath, cfg.Env, false), logger)
		if err != nil {
			if !errors.Is(err, quotedb.ErrFileDBInTest) {
				return nil, nil, fmt.Errorf("error opening fare quote cache: %w", err)
			}
			logging.LogWarning(logger, "fare quote cache disabled", err)
			store = nil
		}
		if store != nil {
			application.QuoteStore = store
			cleanups = append(cleanups, func() {
				logging.SafeCloseWithLogging(store, logger, "fare_quote_cache")
			})
		}

		client := farequote.NewClient(farequote.Config{
			BaseURL:           cfg.QuoteURL,
			APIKey:            cfg.QuoteAPIKey,
			RequestsPerSecond: cfg.QuoteRate,
			CacheTTL:          cfg.QuoteCacheTTL,
		}, store, logger)
		if store != nil {
			go client.RunCleanup(ctx, quoteCleanupInterval, quoteMaxAge)
		}
		application.FareQuotes = client
		quotes = client
	}

	session := navigator.New(net, navigator.Config{
		Layer:  layer,
		Quotes: quotes,
		Logger: logger,
	})
	cleanups = append(cleanups, session.Close)
	application.Navigator = session
	application.Matcher = realtime.NewLocationMatcher(session, realtime.DefaultMatchRadius)

	if cfg.VehiclePositionsURL != "" {
		feed := realtime.NewVehicleFeed(realtime.FeedConfig{
			URL:          cfg.VehiclePositionsURL,
			VehicleID:    cfg.FollowVehicleID,
			StopPrefix:   gtfsStopPrefix,
			PollInterval: cfg.PollInterval,
		}, session, logger)
		feed.Start()
		go func() {
			if err := session.Follow(ctx, feed.Signals()); err != nil && !errors.Is(err, context.Canceled) {
				logging.LogError(logger, "vehicle feed stopped", err)
			}
		}()
		cleanups = append(cleanups, feed.Shutdown)
		application.Feed = feed
	}

	attrs := []slog.Attr{slog.String("layer", layer.String())}
	for k, v := range net.Stats() {
		attrs = append(attrs, slog.Int(k, v))
	}
	logging.LogOperation(logger, "navigator_ready", attrs...)

	return application, cleanup, nil
}
