package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CreditFox/internal/pkg/cache"
)

const (
	lockKeyPrefix = "payment:lock:"
	lockTTL       = 30 * time.Second
)

// Locker guards against a user starting two checkouts with one provider at once.
type Locker interface {
	Acquire(ctx context.Context, userID, provider string) (release func(), err error)
}

type redisLocker struct {
	ttl time.Duration
}

// NewRedisLocker returns a Locker backed by the shared redis client.
func NewRedisLocker() Locker {
	return &redisLocker{ttl: lockTTL}
}

func lockKey(userID, provider string) string {
	return fmt.Sprintf("%s%s:%s", lockKeyPrefix, userID, provider)
}

func (l *redisLocker) Acquire(ctx context.Context, userID, provider string) (func(), error) {
	key := lockKey(userID, provider)
	owner := uuid.NewString()
	ok, err := cache.TryLock(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !ok {
		return nil, ErrAttemptInProgress
	}
	return func() {
		if err := cache.Unlock(context.Background(), key, owner); err != nil {
			log.Warnf("[Payment] failed to release lock %s: %v", key, err)
		}
	}, nil
}
