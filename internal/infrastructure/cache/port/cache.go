package port

import (
	"context"
	"time"
)

// Cache defines the minimal contract for a key-value cache used by the application.
// Implementations must be safe for concurrent use, and every method takes a
// context so callers control timeouts and cancellation.
//
// Values are plain strings so the port stays free of serialization concerns;
// callers encode their own records (the room repository stores JSON).
type Cache interface {
	// Get fetches the value for key. A missing key is reported as ("", ErrMiss);
	// any other non-nil error is a transport or server failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL means
	// no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss is returned by adapters to signal a cache miss in a typed way, so
// callers can tell a miss apart from a transport error.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
