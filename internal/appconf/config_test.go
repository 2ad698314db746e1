package appconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	assert.Equal(t, Test, EnvFlagToEnvironment("test"))
	assert.Equal(t, Production, EnvFlagToEnvironment(" Production "))
	assert.Equal(t, Development, EnvFlagToEnvironment("staging"))
	assert.Equal(t, "production", Production.String())
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Port: 4000, MetroPath: "data/metro.json"}
	assert.NoError(t, valid.Validate())

	t.Run("reports every problem", func(t *testing.T) {
		cfg := Config{Port: 0, RateLimit: -1}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "port 0 out of range")
		assert.ErrorContains(t, err, "no network source")
		assert.ErrorContains(t, err, "rate limit")
	})

	t.Run("vehicle feed needs a poll interval", func(t *testing.T) {
		cfg := valid
		cfg.VehiclePositionsURL = "http://localhost/vehicles.pb"
		assert.ErrorContains(t, cfg.Validate(), "poll interval")

		cfg.PollInterval = 15 * time.Second
		assert.NoError(t, cfg.Validate())
	})
}
