package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
	"navigator.metromap.org/internal/app"
	"navigator.metromap.org/internal/appconf"
	"navigator.metromap.org/internal/logging"
	"navigator.metromap.org/internal/models"
	"navigator.metromap.org/internal/navigator"
	"navigator.metromap.org/internal/network"
	"navigator.metromap.org/internal/realtime"
	"navigator.metromap.org/internal/trip"
)

type fixedQuotes struct {
	price network.Amount
}

func (f fixedQuotes) LowestPrice(ctx context.Context, from, to string, date time.Time) (network.Amount, error) {
	return f.price, nil
}

// idleScheduler never fires, so transfers only finish on station signals.
type idleScheduler struct{}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func (idleScheduler) AfterFunc(time.Duration, func()) trip.Timer { return idleTimer{} }

func ptr(f float64) *float64 { return &f }

// testNetwork: metro a1-a2-a3 (flat 62.00, 2 min hops), walking transfer
// a3-s1 (4 min), suburban s1-s2-s3 (schedule quotes, 5 min hops, located
// along 37.6E), and an unconnected station.
func testNetwork(t *testing.T) *network.Network {
	t.Helper()
	b := network.NewBuilder(nil)

	metro := &network.Line{ID: "m1", Name: "Red", Layer: network.Metro, Tariff: network.FlatRate(6200)}
	for i, id := range []string{"a1", "a2", "a3"} {
		metro.Stations = append(metro.Stations, b.AddStation(network.Station{ID: id, Name: id}))
		if i > 0 {
			b.AddEdge(metro.Stations[i-1].ID, id, 2)
		}
	}
	b.AddLine(metro)

	suburban := &network.Line{ID: "s1", Name: "Savyolovsky", Layer: network.Suburban, Tariff: network.ExternalQuote()}
	for i, id := range []string{"s1", "s2", "s3"} {
		suburban.Stations = append(suburban.Stations, b.AddStation(network.Station{
			ID: id, Name: id, ESP: "200000" + id[1:], Lat: ptr(55.8 + float64(i)/100), Lon: ptr(37.6),
		}))
		if i > 0 {
			b.AddEdge(suburban.Stations[i-1].ID, id, 5)
		}
	}
	b.AddLine(suburban)

	b.AddStation(network.Station{ID: "island", Name: "Island"})

	b.AddTransfer([]string{"a3", "s1"}, network.Transfer{
		Time: 4,
		Type: network.TransferWalking,
		Map:  "a3_s1",
		Routes: []network.TransferRoute{
			{From: "a3", To: "s1", Way: []network.Point{{X: 0, Y: 0}, {X: 10, Y: 4}}},
		},
	})

	net, err := b.Build()
	require.NoError(t, err)
	return net
}

// createTestApi creates a RestAPI over the test network with a session that
// never fires transfer timers and no rate limiting.
func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)

	session := navigator.New(testNetwork(t), navigator.Config{
		Layer:     network.Metro,
		Quotes:    fixedQuotes{price: 5600},
		Scheduler: idleScheduler{},
		Logger:    logger,
	})
	t.Cleanup(session.Close)

	application := &app.Application{
		Config: appconf.Config{
			Env:       appconf.EnvFlagToEnvironment("test"),
			RateLimit: -1,
		},
		Logger:    logger,
		Navigator: session,
		Matcher:   realtime.NewLocationMatcher(session, 0),
	}

	return &RestAPI{Application: application}
}

func (api *RestAPI) testServer(t *testing.T) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	api.SetRoutes(router)
	server := httptest.NewServer(api.Handler(router))
	t.Cleanup(server.Close)
	return server
}

// doRequest performs one request against a fresh server and returns the
// response with its body read.
func doRequest(t *testing.T, api *RestAPI, method, endpoint string) (*http.Response, []byte) {
	t.Helper()
	server := api.testServer(t)

	req, err := http.NewRequest(method, server.URL+endpoint, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, method, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	resp, body := doRequest(t, api, method, endpoint)

	var response models.ResponseModel
	require.NoError(t, json.NewDecoder(bytes.NewReader(body)).Decode(&response), string(body))
	return resp, response
}

func fieldErrorsOf(t *testing.T, body []byte) map[string][]string {
	t.Helper()
	var response struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}
	require.NoError(t, json.Unmarshal(body, &response), string(body))
	return response.FieldErrors
}

func entryOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok, "data.entry should be an object")
	return entry
}

func listOf(t *testing.T, model models.ResponseModel) []interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	list, ok := data["list"].([]interface{})
	require.True(t, ok, "data.list should be an array")
	return list
}
