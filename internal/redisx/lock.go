package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourorg/listing-api/internal/logger"
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a SET NX lease per key, shared by every replica using the same
// Redis. A holder that dies loses the lease after TTL.
type Locker struct {
	c     *Client
	TTL   time.Duration
	Retry time.Duration
}

func NewLocker(c *Client) *Locker {
	return &Locker{c: c, TTL: 10 * time.Second, Retry: 50 * time.Millisecond}
}

func lockKey(key string) string { return "listings:lock:" + key }

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := lockKey(key)
	token := uuid.NewString()
	for {
		ok, err := l.c.SetNX(ctx, k, token, l.TTL)
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return func() {
		// release even when the request context is already gone
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := unlockScript.Run(rctx, l.c.Rdb, []string{k}, token).Err(); err != nil {
			logger.FromContext(ctx).Warn("redis unlock failed", "key", key, "err", err)
		}
	}, nil
}
