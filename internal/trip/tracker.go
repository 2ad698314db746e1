package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"navigator.metromap.org/internal/guidance"
	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/network"
)

var ErrEmptyRoute = errors.New("route has no stations")

type State int

const (
	Idle State = iota
	Tracking
	TransferInProgress
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case TransferInProgress:
		return "transfer_in_progress"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Signal reports that the rider is at a station. Signals may arrive late or
// out of order.
type Signal struct {
	StationID string
	At        time.Time
	Source    string
}

// TransferFinder looks up the transfer linking two stations.
type TransferFinder interface {
	TransferBetween(a, b *network.Station) *network.Transfer
}

type Config struct {
	Scheduler Scheduler
	Notifier  Notifier
	Logger    *slog.Logger
	NewID     func() string
	Now       func() time.Time
}

type activeTransfer struct {
	transfer     *network.Transfer
	walk         *network.TransferRoute
	from, to     *network.Station
	toLine       *network.Line
	diagram      string
	instructions string
	target       int
}

// Tracker follows a rider along a planned route. All transitions are
// serialized; the auto-advance timer re-enters through the same lock and is
// discarded when its generation no longer matches.
type Tracker struct {
	scheduler Scheduler
	notifier  Notifier
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time

	mu        sync.Mutex
	state     State
	tripID    string
	route     []*network.Station
	owners    network.LineResolver
	transfers TransferFinder
	index     int
	next      int

	announced     map[string]bool
	almostArrived bool

	active   *activeTransfer
	timer    Timer
	timerSeq uint64
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Scheduler == nil {
		cfg.Scheduler = WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		scheduler: cfg.Scheduler,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger.With(slog.String("component", "trip_tracker")),
		newID:     cfg.NewID,
		now:       cfg.Now,
		next:      -1,
		announced: make(map[string]bool),
	}
}

// Start begins a new trip at the first station of route. A previous trip is
// abandoned.
func (t *Tracker) Start(route []*network.Station, owners network.LineResolver, transfers TransferFinder) (string, error) {
	if len(route) == 0 {
		return "", ErrEmptyRoute
	}

	var notices []Notice
	t.mu.Lock()
	t.cancelTimerLocked()
	t.resetLocked()
	t.route = append([]*network.Station(nil), route...)
	t.owners = owners
	t.transfers = transfers
	t.tripID = t.newID()
	t.state = Tracking
	tripID := t.tripID

	logging.LogOperation(t.logger, "trip_started",
		slog.String("trip_id", tripID),
		slog.String("from", route[0].ID),
		slog.String("to", route[len(route)-1].ID),
		slog.Int("stations", len(route)))

	if len(route) == 1 {
		notices = t.completeLocked(notices)
	} else {
		notices = t.refreshLocked(notices)
	}
	t.mu.Unlock()

	t.dispatch(notices)
	return tripID, nil
}

// OnCurrentStation feeds one position report into the trip.
func (t *Tracker) OnCurrentStation(stationID string) {
	var notices []Notice
	t.mu.Lock()
	notices = t.advanceLocked(stationID, notices)
	t.mu.Unlock()
	t.dispatch(notices)
}

// Follow consumes signals until ctx is done or signals is closed.
func (t *Tracker) Follow(ctx context.Context, signals <-chan Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			t.OnCurrentStation(sig.StationID)
		}
	}
}

// Stop ends tracking and keeps the route so it can be restarted.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle {
		logging.LogOperation(t.logger, "trip_stopped", slog.String("trip_id", t.tripID))
	}
	t.cancelTimerLocked()
	t.resetLocked()
}

// Dismiss ends tracking and forgets the route.
func (t *Tracker) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelTimerLocked()
	t.resetLocked()
	t.route = nil
	t.owners = nil
	t.transfers = nil
	t.tripID = ""
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) resetLocked() {
	t.state = Idle
	t.index = 0
	t.next = -1
	t.active = nil
	t.almostArrived = false
	clear(t.announced)
}

func (t *Tracker) cancelTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.timerSeq++
}

func (t *Tracker) indexOf(stationID string, from int) int {
	for i := from; i < len(t.route); i++ {
		if t.route[i].ID == stationID {
			return i
		}
	}
	return -1
}

func (t *Tracker) lineAt(i int) *network.Line {
	if t.owners == nil {
		return nil
	}
	return t.owners.LineOf(t.route[i])
}

func (t *Tracker) advanceLocked(stationID string, notices []Notice) []Notice {
	if t.state == Idle || t.state == Completed {
		t.logger.Debug("ignoring station signal without an active trip", slog.String("station_id", stationID))
		return notices
	}

	idx := t.indexOf(stationID, 0)
	if idx < 0 {
		t.logger.Debug("ignoring station signal off the route", slog.String("station_id", stationID))
		return notices
	}
	if idx < t.index {
		t.logger.Debug("ignoring stale station signal",
			slog.String("station_id", stationID),
			slog.Int("index", idx),
			slog.Int("current", t.index))
		return notices
	}

	if t.state == TransferInProgress {
		if idx < t.active.target {
			return notices
		}
		logging.LogOperation(t.logger, "transfer_finished",
			slog.String("trip_id", t.tripID),
			slog.String("station_id", stationID),
			slog.String("reason", "signal"))
		t.cancelTimerLocked()
		t.active = nil
		t.state = Tracking
	} else if idx == t.index && idx != len(t.route)-1 {
		return notices
	}

	t.index = idx
	if idx == len(t.route)-1 {
		return t.completeLocked(notices)
	}
	return t.refreshLocked(notices)
}

func (t *Tracker) completeLocked(notices []Notice) []Notice {
	t.cancelTimerLocked()
	t.active = nil
	t.next = -1
	t.index = len(t.route) - 1
	t.state = Completed

	// A signal may skip the second-to-last stop entirely.
	if len(t.route) > 1 {
		notices = t.almostArrivedLocked(notices)
	}

	last := t.route[t.index]
	logging.LogOperation(t.logger, "trip_completed",
		slog.String("trip_id", t.tripID),
		slog.String("station_id", last.ID))

	return append(notices, t.notice(NoticeArrived, last, nil,
		fmt.Sprintf("You have arrived at %s", last.Name)))
}

func (t *Tracker) almostArrivedLocked(notices []Notice) []Notice {
	if t.almostArrived {
		return notices
	}
	t.almostArrived = true
	dest := t.route[len(t.route)-1]
	return append(notices, t.notice(NoticeAlmostArrived, dest, nil,
		fmt.Sprintf("Almost there, next stop %s", dest.Name)))
}

// refreshLocked recomputes the upcoming line change and raises the
// notifications and transfer guidance that depend on the current index.
func (t *Tracker) refreshLocked(notices []Notice) []Notice {
	n := len(t.route)
	cur := t.index
	curLine := t.lineAt(cur)

	t.next = -1
	for j := cur + 1; j < n; j++ {
		if t.lineAt(j) != curLine {
			t.next = j
			break
		}
	}

	if j := t.next; j > 0 && j-cur == 2 {
		from, to := t.route[j-1], t.route[j]
		key := fmt.Sprintf("%s_to_%s", from.Name, to.Name)
		if !t.announced[key] {
			t.announced[key] = true
			line := t.lineAt(j)
			notices = append(notices, t.notice(NoticeTransferAhead, from, line,
				fmt.Sprintf("Change to %s at %s in two stops", lineName(line, to), from.Name)))
		}
	}

	if cur >= n-2 {
		notices = t.almostArrivedLocked(notices)
	}

	if t.next == cur+1 {
		notices = t.detectTransferLocked(notices)
	}
	return notices
}

func (t *Tracker) detectTransferLocked(notices []Notice) []Notice {
	cur := t.index
	from, to := t.route[cur], t.route[cur+1]
	var prev *network.Station
	if cur > 0 {
		prev = t.route[cur-1]
	}

	var tr *network.Transfer
	if t.transfers != nil {
		tr = t.transfers.TransferBetween(from, to)
	}
	walk := guidance.Resolve(tr, prev, from, to)
	if walk == nil {
		return notices
	}
	diagram := guidance.DiagramFor(tr, walk)
	if diagram == "" && len(walk.Way) == 0 {
		return notices
	}

	target := t.indexOf(walk.To, cur+1)
	if target < 0 {
		target = cur + 1
	}
	toLine := t.lineAt(target)

	t.cancelTimerLocked()
	t.active = &activeTransfer{
		transfer:     tr,
		walk:         walk,
		from:         from,
		to:           t.route[target],
		toLine:       toLine,
		diagram:      diagram,
		instructions: guidance.Instructions(tr, from, t.route[target], toLine),
		target:       target,
	}
	t.state = TransferInProgress

	seq := t.timerSeq
	t.timer = t.scheduler.AfterFunc(time.Duration(tr.Time)*time.Minute, func() {
		t.autoAdvance(seq)
	})

	logging.LogOperation(t.logger, "transfer_started",
		slog.String("trip_id", t.tripID),
		slog.String("from", from.ID),
		slog.String("to", walk.To),
		slog.String("diagram", diagram),
		slog.Int("minutes", tr.Time))

	return append(notices, t.notice(NoticeTransferStarted, from, toLine, t.active.instructions))
}

func (t *Tracker) autoAdvance(seq uint64) {
	var notices []Notice
	t.mu.Lock()
	if seq != t.timerSeq || t.state != TransferInProgress || t.active == nil {
		t.mu.Unlock()
		return
	}

	t.timer = nil
	t.index = t.active.target
	t.active = nil
	t.state = Tracking

	logging.LogOperation(t.logger, "transfer_finished",
		slog.String("trip_id", t.tripID),
		slog.String("station_id", t.route[t.index].ID),
		slog.String("reason", "timer"))

	notices = t.refreshLocked(notices)
	t.mu.Unlock()

	t.dispatch(notices)
}

func (t *Tracker) notice(kind NoticeKind, st *network.Station, line *network.Line, text string) Notice {
	n := Notice{
		Kind:   kind,
		Text:   text,
		TripID: t.tripID,
		Time:   t.now(),
	}
	if st != nil {
		n.StationID = st.ID
	}
	if line != nil {
		n.LineName = line.Name
	}
	return n
}

func (t *Tracker) dispatch(notices []Notice) {
	for _, n := range notices {
		t.notifier.Notify(n)
	}
}

func lineName(line *network.Line, fallback *network.Station) string {
	if line != nil && line.Name != "" {
		return line.Name
	}
	return fallback.Name
}
