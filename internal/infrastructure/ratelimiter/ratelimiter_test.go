package ratelimiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurst(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         3,
	})

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
}

func TestSourcesAreIndependent(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         1,
	})

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
}

func TestTokensRefillOverTime(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1000,
		MaxBurst:         2,
	})

	require.True(t, rl.Allow("client-a"))
	require.True(t, rl.Allow("client-a"))
	require.False(t, rl.Allow("client-a"))

	// At 1000 tokens/s a few milliseconds is enough to earn one back.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, rl.Allow("client-a"))
}

func TestRefillCapsAtMaxBurst(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1000,
		MaxBurst:         2,
	})

	require.True(t, rl.Allow("client-a"))
	time.Sleep(20 * time.Millisecond)

	// Long idle must not bank more than the burst size.
	assert.Equal(t, 2, rl.Remaining("client-a"))
}

func TestGetSourceKey(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		SourceHeaderKey:  "X-Forwarded-For",
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", rl.GetSourceKey(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", rl.GetSourceKey(r))
}

func TestMaxBurstDefaultsToRate(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 7})
	assert.Equal(t, 7, rl.GetMaxBurst())
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Set("forever", 5))
	got, err := store.Get("forever")
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	require.NoError(t, store.SetWithExpiration("short", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err = store.Get("short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = store.Get("never-set")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStoreSweepDropsExpired(t *testing.T) {
	s := &memoryStore{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	s.entries["old"] = memoryEntry{count: 1, deadline: time.Now().Add(-time.Minute)}
	s.entries["live"] = memoryEntry{count: 2}

	s.dropExpired(time.Now())

	assert.NotContains(t, s.entries, "old")
	assert.Contains(t, s.entries, "live")
}
