package utils

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestExtractIDFromParams(t *testing.T) {
	testCases := []struct {
		name string
		id   string
		want string
	}{
		{name: "plain station ID", id: "sokol", want: "sokol"},
		{name: "with JSON extension", id: "sokol.json", want: "sokol"},
		{name: "dotted ID", id: "msk.2.json", want: "msk.2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := httprouter.New()

			var result string
			router.HandlerFunc(http.MethodPost, "/api/trip/station/:id", func(w http.ResponseWriter, r *http.Request) {
				result = ExtractIDFromParams(r, "id")
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/trip/station/"+tc.id, nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, result)
		})
	}
}

func TestParseFloatParam(t *testing.T) {
	params := url.Values{"lat": {"55.75"}, "lon": {"east"}}

	lat, errs := ParseFloatParam(params, "lat", nil)
	assert.InDelta(t, 55.75, lat, 1e-9)
	assert.Empty(t, errs)

	_, errs = ParseFloatParam(params, "lon", errs)
	assert.Contains(t, errs, "lon")

	radius, errs := ParseFloatParam(params, "radius", errs)
	assert.Zero(t, radius)
	assert.NotContains(t, errs, "radius")
}

func TestRequireParams(t *testing.T) {
	errs := RequireParams(url.Values{"from": {"a"}}, nil, "from", "to")
	assert.NotContains(t, errs, "from")
	assert.Equal(t, []string{`Missing required field "to".`}, errs["to"])
}
