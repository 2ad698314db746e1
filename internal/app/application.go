package app

import (
	"log/slog"

	"navigator.metromap.org/internal/appconf"
	"navigator.metromap.org/internal/farequote"
	"navigator.metromap.org/internal/navigator"
	"navigator.metromap.org/internal/realtime"
	"navigator.metromap.org/quotedb"
)

// Application holds the dependencies shared by the HTTP handlers, the debug
// UI and the background workers. Everything after Navigator is optional.
type Application struct {
	Config     appconf.Config
	Logger     *slog.Logger
	Navigator  *navigator.Session
	FareQuotes *farequote.Client
	QuoteStore *quotedb.Client
	Feed       *realtime.VehicleFeed
	Matcher    *realtime.LocationMatcher
}
