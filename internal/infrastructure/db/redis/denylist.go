package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "denylist:"

// Denylist stores revoked token ids in Redis so every API instance sees the
// same revocations. Redis expires each key at the token's not-after time.
// Key format: denylist:<jti>
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// Add records jti until notAfter using SET NX, so concurrent callers agree
// on which of them added it first.
func (d *Denylist) Add(ctx context.Context, jti string, notAfter time.Time) (bool, error) {
	ttl := notAfter.Sub(d.now())
	if ttl <= 0 {
		// Already past its not-after; nothing could accept the token anyway.
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, d.key(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("denylist add: %w", err)
	}
	return ok, nil
}

// Contains reports whether jti is currently denylisted.
func (d *Denylist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

func (d *Denylist) key(jti string) string {
	return denylistPrefix + jti
}
