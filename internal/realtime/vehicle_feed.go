package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"
	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/trip"
)

// StationLookup resolves station IDs of the loaded network.
type StationLookup interface {
	Station(id string) (*network.Station, bool)
}

// FetchFunc downloads and parses one vehicle-positions snapshot.
type FetchFunc func(ctx context.Context) (*gtfs.Realtime, error)

type FeedConfig struct {
	URL     string
	Headers map[string]string
	// VehicleID or TripID selects the vehicle to follow. VehicleID wins when
	// both are set.
	VehicleID string
	TripID    string
	// StopPrefix is prepended to GTFS-RT stop IDs to form station IDs, the
	// same prefix the static loader used.
	StopPrefix   string
	PollInterval time.Duration
	Timeout      time.Duration
	// Fetch replaces the HTTP download. Used by tests.
	Fetch FetchFunc
}

// VehicleFeed polls a GTFS-realtime vehicle positions feed and turns the
// followed vehicle's stop changes into station signals.
type VehicleFeed struct {
	config   FeedConfig
	fetch    FetchFunc
	stations StationLookup
	logger   *slog.Logger

	mu        sync.Mutex
	vehicleID string
	tripID    string
	lastStop  string
	closed    bool
	signals   chan trip.Signal

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewVehicleFeed(cfg FeedConfig, stations StationLookup, logger *slog.Logger) *VehicleFeed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	feed := &VehicleFeed{
		config:       cfg,
		fetch:        cfg.Fetch,
		stations:     stations,
		logger:       logger.With(slog.String("component", "vehicle_feed")),
		vehicleID:    cfg.VehicleID,
		tripID:       cfg.TripID,
		signals:      make(chan trip.Signal, 16),
		shutdownChan: make(chan struct{}),
	}
	if feed.fetch == nil {
		feed.fetch = feed.download
	}
	return feed
}

// Signals delivers one signal per observed stop change. The channel is closed
// by Shutdown.
func (f *VehicleFeed) Signals() <-chan trip.Signal {
	return f.signals
}

// Follow switches the followed vehicle or trip.
func (f *VehicleFeed) Follow(vehicleID, tripID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicleID = vehicleID
	f.tripID = tripID
	f.lastStop = ""
}

// Start polls in the background until Shutdown.
func (f *VehicleFeed) Start() {
	f.wg.Add(1)
	go f.pollPeriodically()
}

func (f *VehicleFeed) Shutdown() {
	f.shutdownOnce.Do(func() {
		close(f.shutdownChan)
		f.wg.Wait()

		f.mu.Lock()
		f.closed = true
		close(f.signals)
		f.mu.Unlock()
	})
}

func (f *VehicleFeed) pollPeriodically() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), f.config.Timeout)
			ctx = logging.WithLogger(ctx, f.logger)
			if err := f.Poll(ctx); err != nil {
				logging.LogError(f.logger, "failed to poll vehicle positions", err,
					slog.String("url", f.config.URL))
			}
			cancel()
		case <-f.shutdownChan:
			logging.LogOperation(f.logger, "shutting_down_vehicle_feed")
			return
		}
	}
}

// Poll fetches one snapshot and emits a signal if the followed vehicle has
// reached a different known station.
func (f *VehicleFeed) Poll(ctx context.Context) error {
	data, err := f.fetch(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	vehicle := f.findVehicle(data.Vehicles)
	if vehicle == nil || vehicle.StopID == nil || *vehicle.StopID == "" {
		return nil
	}

	stationID := f.config.StopPrefix + *vehicle.StopID
	if stationID == f.lastStop {
		return nil
	}
	if _, ok := f.stations.Station(stationID); !ok {
		f.logger.Debug("vehicle at unknown station", slog.String("station_id", stationID))
		return nil
	}
	f.lastStop = stationID

	sig := trip.Signal{StationID: stationID, At: time.Now(), Source: "vehicle_feed"}
	if vehicle.Timestamp != nil {
		sig.At = *vehicle.Timestamp
	}

	if f.closed {
		return nil
	}
	select {
	case f.signals <- sig:
	default:
		f.logger.Warn("dropping vehicle signal, consumer is behind", slog.String("station_id", stationID))
	}
	return nil
}

func (f *VehicleFeed) findVehicle(vehicles []gtfs.Vehicle) *gtfs.Vehicle {
	for i := range vehicles {
		v := &vehicles[i]
		if f.vehicleID != "" {
			if v.ID != nil && v.ID.ID == f.vehicleID {
				return v
			}
			continue
		}
		if f.tripID != "" && v.Trip != nil && v.Trip.ID.ID == f.tripID {
			return v
		}
	}
	return nil
}

func (f *VehicleFeed) download(ctx context.Context) (*gtfs.Realtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range f.config.Headers {
		req.Header.Add(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, f.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vehicle positions request returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return gtfs.ParseRealtime(b, &gtfs.ParseRealtimeOptions{})
}
