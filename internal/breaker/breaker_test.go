package breaker

import (
	"fmt"
	"testing"
	"time"

	"snapscreen/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestDisabledBreakerRunsDirectly(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	b := New[int]("disabled", cfg, nil)
	assert.Nil(t, b)

	got, err := b.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.True(t, b.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, b.Stats())
}

func TestBreakerTripsAfterFailures(t *testing.T) {
	b := New[string]("identity-toolkit", testConfig(), nil)
	require.NotNil(t, b)

	stats := b.Stats()
	assert.Equal(t, "identity-toolkit", stats["name"])
	assert.Equal(t, "closed", stats["state"])

	fail := func() (string, error) { return "", fmt.Errorf("upstream 503") }
	for i := 0; i < 2; i++ {
		_, err := b.Execute(fail)
		require.Error(t, err)
		assert.False(t, IsRejected(err))
	}

	assert.False(t, b.IsHealthy())

	called := false
	_, err := b.Execute(func() (string, error) {
		called = true
		return "ok", nil
	})
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.False(t, called, "open breaker must not run the call")
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	b := New[int]("lenient", testConfig(), nil)

	_, err := b.Execute(func() (int, error) { return 0, fmt.Errorf("boom") })
	require.Error(t, err)
	assert.True(t, b.IsHealthy())
}
