package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"navigator.metromap.org/internal/appconf"
	"navigator.metromap.org/internal/farequote"
)

// envDefaults reads flag defaults from the environment and remembers the
// first malformed value of each variable.
type envDefaults struct {
	getenv func(string) string
	errs   []error
}

func (e *envDefaults) lookup(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *envDefaults) lookupInt(key string, fallback int) int {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *envDefaults) lookupFloat(key string, fallback float64) float64 {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e *envDefaults) lookupDuration(key string, fallback time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// parseConfig reads command-line flags whose defaults come from the
// environment.
func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (appconf.Config, error) {
	var cfg appconf.Config
	var env string
	defaults := &envDefaults{getenv: getenv}

	fs.IntVar(&cfg.Port, "port", defaults.lookupInt("PORT", 4000), "API server port, bound on loopback")
	fs.StringVar(&env, "env", defaults.lookup("NAVIGATOR_ENV", "development"), "Environment (development|test|production)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.lookup("LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	fs.IntVar(&cfg.RateLimit, "rate-limit", defaults.lookupInt("RATE_LIMIT", 100), "Requests per second per client, negative disables")

	fs.StringVar(&cfg.MetroPath, "metro", defaults.lookup("METRO_MAP", ""), "Metro network JSON file")
	fs.StringVar(&cfg.SuburbanPath, "suburban", defaults.lookup("SUBURBAN_MAP", ""), "Suburban network JSON file")
	fs.StringVar(&cfg.RiverTramPath, "river-tram", defaults.lookup("RIVER_TRAM_MAP", ""), "River tram network JSON file")
	fs.StringVar(&cfg.SuburbanGTFS, "suburban-gtfs", defaults.lookup("SUBURBAN_GTFS", ""), "Static GTFS zip (path or URL) added to the suburban layer")
	fs.StringVar(&cfg.ActiveLayer, "layer", defaults.lookup("ACTIVE_LAYER", "metro"), "Initially active layer (metro|suburban|river_tram)")

	fs.StringVar(&cfg.QuoteURL, "quote-url", defaults.lookup("QUOTE_URL", farequote.DefaultBaseURL), "Schedule service search endpoint")
	fs.StringVar(&cfg.QuoteAPIKey, "quote-api-key", defaults.lookup("QUOTE_API_KEY", ""), "Schedule service API key, empty disables fare quotes")
	fs.Float64Var(&cfg.QuoteRate, "quote-rate", defaults.lookupFloat("QUOTE_RATE", 5), "Schedule service requests per second")
	fs.DurationVar(&cfg.QuoteCacheTTL, "quote-cache-ttl", defaults.lookupDuration("QUOTE_CACHE_TTL", 6*time.Hour), "How long fare quotes stay fresh")
	fs.StringVar(&cfg.QuoteCachePath, "quote-cache", defaults.lookup("QUOTE_CACHE_PATH", "quotes.db"), "SQLite fare quote cache, or :memory:")

	fs.StringVar(&cfg.VehiclePositionsURL, "vehicle-positions", defaults.lookup("VEHICLE_POSITIONS_URL", ""), "GTFS-realtime vehicle positions feed")
	fs.StringVar(&cfg.FollowVehicleID, "follow-vehicle", defaults.lookup("FOLLOW_VEHICLE", ""), "Vehicle ID to follow in the positions feed")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", defaults.lookupDuration("POLL_INTERVAL", 30*time.Second), "Vehicle positions polling interval")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if len(defaults.errs) > 0 {
		return cfg, fmt.Errorf("invalid environment: %w", errors.Join(defaults.errs...))
	}

	cfg.Env = appconf.EnvFlagToEnvironment(env)
	return cfg, cfg.Validate()
}
