package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Debouncer grants at most one Acquire per key per window using SET NX EX.
type Debouncer struct {
	rdb    *goredis.Client
	prefix string
}

func NewDebouncer(rdb *goredis.Client, prefix string) *Debouncer {
	return &Debouncer{rdb: rdb, prefix: prefix}
}

// Acquire reports whether the caller owns the window for key. Without a client
// every call is granted. On a Redis error it returns (true, err) so callers
// fail open and still see the error.
func (d *Debouncer) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	if d == nil || d.rdb == nil {
		return true, nil
	}
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}
