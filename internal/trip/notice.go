package trip

import (
	"log/slog"
	"time"

	"navigator.metromap.org/internal/logging"
)

type NoticeKind string

const (
	NoticeTransferAhead   NoticeKind = "transfer_ahead"
	NoticeTransferStarted NoticeKind = "transfer_started"
	NoticeAlmostArrived   NoticeKind = "almost_arrived"
	NoticeArrived         NoticeKind = "arrived"
)

// Notice is a fire-and-forget message for the rider.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Text      string     `json:"text"`
	TripID    string     `json:"tripId"`
	StationID string     `json:"stationId,omitempty"`
	LineName  string     `json:"lineName,omitempty"`
	Time      time.Time  `json:"time"`
}

// Notifier receives notices after the tracker has released its lock, so
// implementations may call back into the tracker.
type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes every notice to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notice) {
	logging.LogOperation(l.Logger, "trip_notice",
		slog.String("kind", string(n.Kind)),
		slog.String("trip_id", n.TripID),
		slog.String("station_id", n.StationID),
		slog.String("text", n.Text))
}

// Notifiers fans a notice out to several sinks in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notice) {
	for _, sink := range ns {
		if sink != nil {
			sink.Notify(n)
		}
	}
}
