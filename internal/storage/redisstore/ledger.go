// Package redisstore keeps short-lived authentication state in Redis.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetKeyPrefix = "cabinet:reset:used:"

// ResetLedger records consumed password reset token ids so each token can be
// used at most once.
type ResetLedger struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewResetLedger wraps a Redis client.
func NewResetLedger(client redis.UniversalClient) *ResetLedger {
	return &ResetLedger{client: client, now: time.Now}
}

// Consume marks tokenID as used until the token expires. It reports false when
// the id had already been consumed.
func (l *ResetLedger) Consume(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := until.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := l.client.SetNX(ctx, resetKeyPrefix+tokenID, l.now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record reset token: %w", err)
	}
	return ok, nil
}
