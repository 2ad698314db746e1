package tariff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/network"
)

// ErrMissingCodes is reported when a segment has no schedule-system codes.
var ErrMissingCodes = errors.New("segment endpoints have no schedule codes")

// QuoteService returns the cheapest ticket between two schedule-system
// stations on a date.
type QuoteService interface {
	LowestPrice(ctx context.Context, fromCode, toCode string, date time.Time) (network.Amount, error)
}

// CostUpdate is one running-total notification. Exactly one update per
// calculation has Final set, and it is always the last one delivered.
type CostUpdate struct {
	Total    network.Amount
	Resolved int
	Pending  int
	Final    bool
}

// Calculator prices routes segment by segment.
type Calculator struct {
	quotes QuoteService
	logger *slog.Logger
	now    func() time.Time
}

func NewCalculator(quotes QuoteService, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		quotes: quotes,
		logger: logger.With(slog.String("component", "tariff_calculator")),
		now:    time.Now,
	}
}

type quoteResult struct {
	segment int
	amount  network.Amount
}

// Calculate prices route asynchronously. Only the first flat-rate segment is
// charged, every zone segment is charged by its zone, and every external quote
// segment is queried concurrently. Failed quotes count as zero. onUpdate is
// never called concurrently and is not called again once ctx is done.
func (c *Calculator) Calculate(ctx context.Context, route []*network.Station, owners network.LineResolver, onUpdate func(CostUpdate)) {
	segments := Split(route, owners)

	var base network.Amount
	flatCharged := false
	resolved := 0
	var external []int

	for i, seg := range segments {
		var t *network.Tariff
		if seg.Line != nil {
			t = seg.Line.Tariff
		}
		switch {
		case t == nil:
			resolved++
		case t.Kind == network.FlatRateTariff:
			if !flatCharged {
				base += t.Price
				flatCharged = true
			}
			resolved++
		case t.Kind == network.ZoneBasedTariff:
			base += t.ZonePrice(seg.Zone)
			resolved++
		case t.Kind == network.ExternalQuoteTariff:
			external = append(external, i)
		default:
			resolved++
		}
	}

	results := make(chan quoteResult, len(external))
	for _, i := range external {
		go func(i int, seg Segment) {
			results <- quoteResult{segment: i, amount: c.quote(ctx, seg)}
		}(i, segments[i])
	}

	go func() {
		total := base
		pending := len(external)

		deliver := func() bool {
			if ctx.Err() != nil {
				return false
			}
			onUpdate(CostUpdate{Total: total, Resolved: resolved, Pending: pending, Final: pending == 0})
			return true
		}

		if !deliver() || pending == 0 {
			return
		}

		for pending > 0 {
			select {
			case <-ctx.Done():
				return
			case r := <-results:
				total += r.amount
				resolved++
				pending--
				if !deliver() {
					return
				}
			}
		}
	}()
}

func (c *Calculator) quote(ctx context.Context, seg Segment) network.Amount {
	from, to := seg.First(), seg.Last()
	attrs := []slog.Attr{
		slog.String("from", from.ID),
		slog.String("to", to.ID),
	}
	if seg.Line != nil {
		attrs = append(attrs, slog.String("line", seg.Line.ID))
	}

	if c.quotes == nil || from.ESP == "" || to.ESP == "" {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "fare_quote_skipped",
			append(attrs, slog.String("error", ErrMissingCodes.Error()))...)
		return 0
	}

	amount, err := c.quotes.LowestPrice(ctx, from.ESP, to.ESP, c.now())
	if err != nil {
		if ctx.Err() == nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "fare_quote_failed",
				append(attrs, slog.String("error", err.Error()))...)
		}
		return 0
	}

	logging.LogOperation(c.logger, "fare_quote_resolved", append(attrs, slog.Int64("amount", int64(amount)))...)
	return amount
}

// Total blocks until the final update and returns the complete price.
func (c *Calculator) Total(ctx context.Context, route []*network.Station, owners network.LineResolver) (network.Amount, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	final := make(chan network.Amount, 1)
	c.Calculate(ctx, route, owners, func(u CostUpdate) {
		if u.Final {
			final <- u.Total
		}
	})

	select {
	case total := <-final:
		return total, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
