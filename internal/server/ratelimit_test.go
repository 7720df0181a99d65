package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(60, 2, testLogger)
	t.Cleanup(rl.Close)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for range 2 {
		ok, _ := rl.Allow("ip:10.0.0.1")
		assert.True(t, ok)
	}
	ok, wait := rl.Allow("ip:10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = rl.Allow("ip:10.0.0.2")
	assert.True(t, ok, "buckets are per key")

	clock = clock.Add(time.Second)
	ok, _ = rl.Allow("ip:10.0.0.1")
	assert.True(t, ok, "a rejected request does not consume the refilled token")

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_clients"])
	assert.Equal(t, int64(1), stats["requests_rejected"])

	clock = clock.Add(limiterIdleAfter + time.Second)
	rl.evictIdle(limiterIdleAfter)
	assert.Equal(t, 0, rl.GetStats()["active_clients"])
}

func TestRateLimitKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/scans", nil)
	r.RemoteAddr = "192.0.2.7:5123"

	assert.Equal(t, "", rateLimitKey(r, false, false))
	assert.Equal(t, "ip:192.0.2.7", rateLimitKey(r, true, true))

	r.Header.Set("Authorization", "Bearer some-token")
	byToken := rateLimitKey(r, true, true)
	assert.Contains(t, byToken, "cred:")
	assert.NotContains(t, byToken, "some-token")

	r.Header.Set("X-API-Key", "key-1")
	assert.NotEqual(t, byToken, rateLimitKey(r, true, true))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote addr", nil, "192.0.2.7"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "garbage, 203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"invalid headers", map[string]string{"X-Forwarded-For": "nope", "X-Real-IP": "nope"}, "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.7:5123"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
