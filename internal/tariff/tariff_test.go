package tariff

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"navigator.metromap.org/internal/network"
)

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]network.Amount
	errs   map[string]error
	calls  []string
}

func (f *fakeQuotes) LowestPrice(ctx context.Context, from, to string, date time.Time) (network.Amount, error) {
	key := from + "-" + to
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err := f.errs[key]; err != nil {
		return 0, err
	}
	price, ok := f.prices[key]
	if !ok {
		return 0, fmt.Errorf("no tickets for %s", key)
	}
	return price, nil
}

type blockingQuotes struct {
	started chan struct{}
}

func (b *blockingQuotes) LowestPrice(ctx context.Context, from, to string, date time.Time) (network.Amount, error) {
	close(b.started)
	<-ctx.Done()
	return 0, ctx.Err()
}

type lineDef struct {
	id       string
	tariff   *network.Tariff
	stations []network.Station
}

// buildRoute chains the given lines end to end and returns the full route.
func buildRoute(t *testing.T, defs ...lineDef) ([]*network.Station, network.LineResolver) {
	t.Helper()
	b := network.NewBuilder(nil)
	var route []*network.Station
	for _, def := range defs {
		line := &network.Line{ID: def.id, Name: def.id, Tariff: def.tariff, Layer: network.Metro}
		for _, st := range def.stations {
			canonical := b.AddStation(st)
			if len(route) > 0 {
				b.AddEdge(route[len(route)-1].ID, canonical.ID, 2)
			}
			line.Stations = append(line.Stations, canonical)
			route = append(route, canonical)
		}
		b.AddLine(line)
	}
	net, err := b.Build()
	require.NoError(t, err)
	return route, net.Ownership(network.Metro)
}

func stations(prefix string, n int, esp bool) []network.Station {
	out := make([]network.Station, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = network.Station{ID: id, Name: id}
		if esp {
			out[i].ESP = "esp-" + id
		}
	}
	return out
}

func collect(t *testing.T, calc *Calculator, route []*network.Station, owners network.LineResolver) []CostUpdate {
	t.Helper()
	var mu sync.Mutex
	var updates []CostUpdate
	done := make(chan struct{})

	calc.Calculate(context.Background(), route, owners, func(u CostUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
		if u.Final {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for final cost update")
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]CostUpdate(nil), updates...)
}

func TestSplit(t *testing.T) {
	t.Run("single line yields one segment", func(t *testing.T) {
		route, owners := buildRoute(t, lineDef{id: "1", stations: stations("a", 4, false)})
		segments := Split(route, owners)
		require.Len(t, segments, 1)
		assert.Equal(t, route, segments[0].Stations)
		assert.Equal(t, "1", segments[0].Line.ID)

		again := Split(segments[0].Stations, owners)
		require.Len(t, again, 1)
		assert.Equal(t, route, again[0].Stations)
	})

	t.Run("line changes close segments", func(t *testing.T) {
		route, owners := buildRoute(t,
			lineDef{id: "1", stations: stations("a", 2, false)},
			lineDef{id: "2", stations: stations("b", 3, false)},
			lineDef{id: "3", stations: stations("c", 1, false)},
		)
		segments := Split(route, owners)
		require.Len(t, segments, 3)
		assert.Len(t, segments[0].Stations, 2)
		assert.Len(t, segments[1].Stations, 3)
		assert.Equal(t, "b1", segments[1].First().ID)
		assert.Equal(t, "b3", segments[1].Last().ID)
		assert.Equal(t, "3", segments[2].Line.ID)
	})

	t.Run("zone is the highest station zone", func(t *testing.T) {
		zoned := []network.Station{{ID: "z1", Zone: 1}, {ID: "z2", Zone: 3}, {ID: "z3"}}
		route, owners := buildRoute(t, lineDef{id: "Z", stations: zoned})
		segments := Split(route, owners)
		require.Len(t, segments, 1)
		assert.Equal(t, 3, segments[0].Zone)
	})

	t.Run("empty route", func(t *testing.T) {
		assert.Nil(t, Split(nil, nil))
	})

	t.Run("unowned stations form their own segment", func(t *testing.T) {
		route, owners := buildRoute(t, lineDef{id: "1", stations: stations("a", 2, false)})
		stray := &network.Station{ID: "stray"}
		segments := Split(append(route, stray), owners)
		require.Len(t, segments, 2)
		assert.Nil(t, segments[1].Line)
	})
}

func TestCalculateFlatRateChargedOnce(t *testing.T) {
	flat := network.FlatRate(6200)
	route, owners := buildRoute(t,
		lineDef{id: "F1", tariff: flat, stations: stations("f", 2, false)},
		lineDef{id: "S1", tariff: network.ExternalQuote(), stations: stations("s", 3, true)},
		lineDef{id: "F2", tariff: flat, stations: stations("g", 2, false)},
		lineDef{id: "S2", tariff: network.ExternalQuote(), stations: stations("t", 2, true)},
		lineDef{id: "F3", tariff: flat, stations: stations("h", 2, false)},
	)

	quotes := &fakeQuotes{prices: map[string]network.Amount{
		"esp-s1-esp-s3": 5600,
		"esp-t1-esp-t2": 8000,
	}}
	calc := NewCalculator(quotes, nil)

	updates := collect(t, calc, route, owners)
	require.NotEmpty(t, updates)

	last := updates[len(updates)-1]
	assert.True(t, last.Final)
	assert.Equal(t, network.Amount(6200+5600+8000), last.Total)
	assert.Equal(t, 5, last.Resolved)
	assert.Zero(t, last.Pending)

	finals := 0
	for i, u := range updates {
		if u.Final {
			finals++
		}
		if i > 0 {
			assert.GreaterOrEqual(t, u.Total, updates[i-1].Total)
		}
	}
	assert.Equal(t, 1, finals)
	assert.Len(t, updates, 3, "one update for local tariffs, one per quote")
	assert.ElementsMatch(t, []string{"esp-s1-esp-s3", "esp-t1-esp-t2"}, quotes.calls)
}

func TestCalculateZonesAndFailures(t *testing.T) {
	zones := network.ZoneBased(map[int]network.Amount{1: 3000, 2: 4500})
	zoneOne := []network.Station{{ID: "z1", Zone: 1}, {ID: "z2", Zone: 1}}
	zoneTwo := []network.Station{{ID: "y1", Zone: 2}, {ID: "y2", Zone: 2}}
	zoneNine := []network.Station{{ID: "x1", Zone: 9}}

	route, owners := buildRoute(t,
		lineDef{id: "Z1", tariff: zones, stations: zoneOne},
		lineDef{id: "S1", tariff: network.ExternalQuote(), stations: stations("s", 2, true)},
		lineDef{id: "Z2", tariff: zones, stations: zoneTwo},
		lineDef{id: "S2", tariff: network.ExternalQuote(), stations: stations("n", 2, false)},
		lineDef{id: "Z9", tariff: zones, stations: zoneNine},
		lineDef{id: "free", stations: stations("w", 1, false)},
	)

	quotes := &fakeQuotes{errs: map[string]error{"esp-s1-esp-s2": assert.AnError}}
	calc := NewCalculator(quotes, nil)

	total, err := calc.Total(context.Background(), route, owners)
	require.NoError(t, err)
	assert.Equal(t, network.Amount(3000+4500), total, "failed and code-less quotes count as zero")
	assert.Equal(t, []string{"esp-s1-esp-s2"}, quotes.calls, "segment without codes is never queried")
}

func TestCalculateWithoutExternalSegments(t *testing.T) {
	route, owners := buildRoute(t, lineDef{id: "F", tariff: network.FlatRate(5000), stations: stations("f", 3, false)})
	updates := collect(t, NewCalculator(nil, nil), route, owners)

	require.Len(t, updates, 1)
	assert.True(t, updates[0].Final)
	assert.Equal(t, network.Amount(5000), updates[0].Total)
}

func TestCalculateEmptyRoute(t *testing.T) {
	total, err := NewCalculator(nil, nil).Total(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCalculateCancellation(t *testing.T) {
	route, owners := buildRoute(t,
		lineDef{id: "F", tariff: network.FlatRate(5000), stations: stations("f", 2, false)},
		lineDef{id: "S", tariff: network.ExternalQuote(), stations: stations("s", 2, true)},
	)
	quotes := &blockingQuotes{started: make(chan struct{})}
	calc := NewCalculator(quotes, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan CostUpdate, 4)
	calc.Calculate(ctx, route, owners, func(u CostUpdate) { updates <- u })

	select {
	case u := <-updates:
		assert.False(t, u.Final)
		assert.Equal(t, network.Amount(5000), u.Total)
		assert.Equal(t, 1, u.Pending)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first update")
	}

	select {
	case <-quotes.started:
	case <-time.After(2 * time.Second):
		t.Fatal("quote request never started")
	}

	cancel()

	select {
	case u := <-updates:
		t.Fatalf("unexpected update after cancellation: %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTotalHonoursContext(t *testing.T) {
	route, owners := buildRoute(t, lineDef{id: "S", tariff: network.ExternalQuote(), stations: stations("s", 2, true)})
	calc := NewCalculator(&blockingQuotes{started: make(chan struct{})}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := calc.Total(ctx, route, owners)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
