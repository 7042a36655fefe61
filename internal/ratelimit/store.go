package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key over a sliding window. Keys arrive already
// prefixed with their scope, so one store can back every scope.
type Store interface {
	// Record adds a request at the current time, drops entries older than window
	// and returns how many remain, the new request included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
