package ratelimiter

import (
	"errors"
	"time"
)

// ErrCacheMiss reports that no counter exists for the key; Allow treats a
// miss as a fresh, full bucket.
var ErrCacheMiss = errors.New("cache miss")

// CounterStore holds per-source token counters. Entries carry the window
// TTL so abandoned sources age out without a separate reaper per limiter.
type CounterStore interface {
	Get(key string) (int, error)
	Set(key string, value int) error
	SetWithExpiration(key string, value int, expiration time.Duration) error
	Close() error
}
