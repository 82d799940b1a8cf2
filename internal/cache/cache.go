package cache

import (
	"context"
	"time"
)

// Cache fronts read-heavy payloads, primarily completed assessment reports.
// A miss is never an error; callers always have the database behind it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
