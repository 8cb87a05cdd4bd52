package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// PromotionLock is a best-effort distributed mutex around cohort promotion.
// The in-process mutex already serializes promotions within one process;
// this lock extends the guarantee across processes sharing one Redis.
// A nil *PromotionLock always acquires, which keeps single-process
// deployments working without Redis.
type PromotionLock struct {
	cache *Cache
	ttl   time.Duration
}

// NewPromotionLock creates a PromotionLock with the default TTL.
func NewPromotionLock(cache *Cache) *PromotionLock {
	return &PromotionLock{cache: cache, ttl: TTLPromotionLock}
}

// releaseScript deletes the lock only if the caller still owns it, so a
// slow promotion whose lock expired cannot release a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

func lockKey(stream shared.Stream) string {
	return fmt.Sprintf("%spromotion:%s", PrefixLock, stream.Normalized())
}

// Acquire takes the per-stream lock. It returns an opaque token to pass to
// Release, or shared.ErrPromotionInProgress if another holder has it.
func (l *PromotionLock) Acquire(ctx context.Context, stream shared.Stream) (string, error) {
	if l == nil || l.cache == nil {
		return "", nil
	}

	token := uuid.NewString()
	ok, err := l.cache.Client().SetNX(ctx, lockKey(stream), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	if !ok {
		return "", shared.ErrPromotionInProgress
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (l *PromotionLock) Release(ctx context.Context, stream shared.Stream, token string) error {
	if l == nil || l.cache == nil || token == "" {
		return nil
	}

	err := releaseScript.Run(ctx, l.cache.Client(), []string{lockKey(stream)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return nil
}
