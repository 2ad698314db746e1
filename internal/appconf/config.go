package appconf

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the settings read from flags and the environment at startup.
type Config struct {
	Port      int
	Env       Environment
	LogLevel  string
	RateLimit int

	// Network sources, one per layer. Empty paths skip the layer.
	MetroPath     string
	SuburbanPath  string
	RiverTramPath string
	// SuburbanGTFS optionally builds the suburban layer from a GTFS feed.
	SuburbanGTFS string
	ActiveLayer  string

	// Fare quote service.
	QuoteURL       string
	QuoteAPIKey    string
	QuoteRate      float64
	QuoteCacheTTL  time.Duration
	QuoteCachePath string

	// Live vehicle positions.
	VehiclePositionsURL string
	FollowVehicleID     string
	PollInterval        time.Duration
}

// Validate reports configuration that would prevent startup.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MetroPath == "" && c.SuburbanPath == "" && c.RiverTramPath == "" && c.SuburbanGTFS == "" {
		errs = append(errs, errors.New("no network source configured"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must be non-negative"))
	}
	if c.VehiclePositionsURL != "" && c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive when a vehicle feed is set"))
	}
	return errors.Join(errs...)
}
