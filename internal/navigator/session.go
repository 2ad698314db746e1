package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/routing"
	"navigator.metromap.org/internal/tariff"
	"navigator.metromap.org/internal/trip"
)

var (
	ErrNoNetwork = errors.New("no network loaded")
	ErrNoPlan    = errors.New("no route planned")
	// ErrPlanSuperseded is returned to a cost waiter whose calculation was
	// cancelled by a newer plan, cost request or layer change.
	ErrPlanSuperseded = errors.New("route changed before its fare was calculated")
)

// Plan is a planned route with its fare segments under the active layer.
type Plan struct {
	Route    routing.Route
	Segments []tariff.Segment
	Layer    network.Layer
}

type Config struct {
	Layer     network.Layer
	Quotes    tariff.QuoteService
	Scheduler trip.Scheduler
	// Notifier receives trip notices in addition to the session's own buffer.
	Notifier     trip.Notifier
	NoticeBuffer int
	Logger       *slog.Logger
}

// Session is the single rider context: the active layer, the loaded network,
// the current plan and its pending fare calculation, and the live trip.
type Session struct {
	logger  *slog.Logger
	calc    *tariff.Calculator
	tracker *trip.Tracker
	notices *noticeRing

	mu         sync.RWMutex
	net        *network.Network
	layer      network.Layer
	plan       *Plan
	costGen    uint64
	costCancel context.CancelFunc
	lastCost   *tariff.CostUpdate
}

func New(net *network.Network, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ring := newNoticeRing(cfg.NoticeBuffer)
	var notifier trip.Notifier = ring
	if cfg.Notifier != nil {
		notifier = trip.Notifiers{ring, cfg.Notifier}
	}

	return &Session{
		logger:  cfg.Logger.With(slog.String("component", "navigator")),
		calc:    tariff.NewCalculator(cfg.Quotes, cfg.Logger),
		notices: ring,
		tracker: trip.NewTracker(trip.Config{
			Scheduler: cfg.Scheduler,
			Notifier:  notifier,
			Logger:    cfg.Logger,
		}),
		net:   net,
		layer: cfg.Layer,
	}
}

func (s *Session) Network() *network.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.net
}

func (s *Session) Layer() network.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layer
}

// Owners returns the line attribution for the active layer.
func (s *Session) Owners() *network.Ownership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.net == nil {
		return nil
	}
	return s.net.Ownership(s.layer)
}

// Station looks a station up in the loaded network.
func (s *Session) Station(id string) (*network.Station, bool) {
	net := s.Network()
	if net == nil {
		return nil, false
	}
	return net.Station(id)
}

func (s *Session) Stations() []*network.Station {
	net := s.Network()
	if net == nil {
		return nil
	}
	return net.Stations()
}

// SetLayer switches the active map layer. The plan and the trip are dropped
// because line ownership, and with it fare segments, depend on the layer.
func (s *Session) SetLayer(layer network.Layer) {
	s.mu.Lock()
	if s.layer == layer {
		s.mu.Unlock()
		return
	}
	s.layer = layer
	s.clearPlanLocked()
	s.mu.Unlock()

	s.tracker.Dismiss()
	logging.LogOperation(s.logger, "layer_changed", slog.String("layer", layer.String()))
}

// SwitchNetwork replaces the whole network, as after a map reload.
func (s *Session) SwitchNetwork(net *network.Network, layer network.Layer) {
	s.tracker.Dismiss()

	s.mu.Lock()
	s.net = net
	s.layer = layer
	s.clearPlanLocked()
	s.mu.Unlock()

	attrs := []slog.Attr{slog.String("layer", layer.String())}
	if net != nil {
		for k, v := range net.Stats() {
			attrs = append(attrs, slog.Int(k, v))
		}
	}
	logging.LogOperation(s.logger, "network_switched", attrs...)
}

// Plan finds the fastest route between two stations and makes it current.
// A failed search clears the previous plan.
func (s *Session) Plan(ctx context.Context, fromID, toID string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.net == nil {
		return Plan{}, ErrNoNetwork
	}
	from, ok := s.net.Station(fromID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", routing.ErrUnknownStation, fromID)
	}
	to, ok := s.net.Station(toID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", routing.ErrUnknownStation, toID)
	}

	s.clearPlanLocked()
	route, err := routing.FindRoute(from, to, s.net.Stations())
	if err != nil {
		logging.LogOperation(s.logger, "route_not_found",
			slog.String("from", fromID),
			slog.String("to", toID))
		return Plan{}, err
	}

	owners := s.net.Ownership(s.layer)
	plan := Plan{
		Route:    route,
		Segments: tariff.Split(route.Stations, owners),
		Layer:    s.layer,
	}
	s.plan = &plan

	logging.LogOperation(s.logger, "route_found",
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.Int("stations", len(route.Stations)),
		slog.Int("segments", len(plan.Segments)),
		slog.Int("minutes", route.TotalTime),
		slog.Duration("duration", time.Since(start)))

	return plan, nil
}

func (s *Session) CurrentPlan() (Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil {
		return Plan{}, false
	}
	return *s.plan, true
}

// ClearPlan drops the plan and cancels its fare calculation.
func (s *Session) ClearPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPlanLocked()
}

func (s *Session) clearPlanLocked() {
	s.plan = nil
	s.lastCost = nil
	s.costGen++
	if s.costCancel != nil {
		s.costCancel()
		s.costCancel = nil
	}
}

// RequestCost starts the fare calculation for the current plan. Any earlier
// calculation is cancelled, and updates belonging to a superseded plan or
// request are dropped.
func (s *Session) RequestCost(ctx context.Context, onUpdate func(tariff.CostUpdate)) error {
	_, err := s.requestCost(ctx, onUpdate)
	return err
}

// requestCost returns a channel closed once the calculation is finished or
// cancelled. A final update is handed to onUpdate before the channel closes.
func (s *Session) requestCost(ctx context.Context, onUpdate func(tariff.CostUpdate)) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.plan == nil {
		s.mu.Unlock()
		return nil, ErrNoPlan
	}
	if s.costCancel != nil {
		s.costCancel()
	}
	s.costGen++
	gen := s.costGen
	costCtx, cancel := context.WithCancel(ctx)
	s.costCancel = cancel
	s.lastCost = nil
	stations := s.plan.Route.Stations
	owners := s.net.Ownership(s.layer)
	s.mu.Unlock()

	s.calc.Calculate(costCtx, stations, owners, func(u tariff.CostUpdate) {
		s.mu.Lock()
		if gen != s.costGen {
			s.mu.Unlock()
			s.logger.Debug("dropping stale cost update", slog.Uint64("generation", gen))
			return
		}
		update := u
		s.lastCost = &update
		if u.Final {
			s.costCancel = nil
		}
		s.mu.Unlock()

		if onUpdate != nil {
			onUpdate(u)
		}
		if u.Final {
			cancel()
		}
	})
	return costCtx.Done(), nil
}

// FinalCost calculates the fare of the current plan and waits for it. It
// returns ErrPlanSuperseded as soon as the calculation is cancelled by a
// newer request.
func (s *Session) FinalCost(ctx context.Context) (tariff.CostUpdate, error) {
	final := make(chan tariff.CostUpdate, 1)
	done, err := s.requestCost(ctx, func(u tariff.CostUpdate) {
		if u.Final {
			final <- u
		}
	})
	if err != nil {
		return tariff.CostUpdate{}, err
	}

	select {
	case u := <-final:
		return u, nil
	case <-done:
	}

	select {
	case u := <-final:
		return u, nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return tariff.CostUpdate{}, err
	}
	return tariff.CostUpdate{}, ErrPlanSuperseded
}

// LastCost returns the latest accepted update for the current plan.
func (s *Session) LastCost() (tariff.CostUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCost == nil {
		return tariff.CostUpdate{}, false
	}
	return *s.lastCost, true
}

// StartTrip begins live tracking along the current plan.
func (s *Session) StartTrip() (string, error) {
	s.mu.RLock()
	if s.plan == nil {
		s.mu.RUnlock()
		return "", ErrNoPlan
	}
	stations := s.plan.Route.Stations
	owners := s.net.Ownership(s.layer)
	net := s.net
	s.mu.RUnlock()

	return s.tracker.Start(stations, owners, net)
}

// Signal reports the rider's current station.
func (s *Session) Signal(stationID string) {
	s.tracker.OnCurrentStation(stationID)
}

// Follow feeds a live signal stream into the trip until ctx is done or the
// stream closes.
func (s *Session) Follow(ctx context.Context, signals <-chan trip.Signal) error {
	return s.tracker.Follow(ctx, signals)
}

func (s *Session) StopTrip() {
	s.tracker.Stop()
}

func (s *Session) DismissTrip() {
	s.tracker.Dismiss()
}

func (s *Session) Trip() trip.Snapshot {
	return s.tracker.Snapshot()
}

// Notices returns recent trip notices, oldest first.
func (s *Session) Notices() []trip.Notice {
	return s.notices.list()
}

// Close cancels pending work and ends the trip.
func (s *Session) Close() {
	s.tracker.Dismiss()
	s.ClearPlan()
}
