package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:"

// ErrLockTimeout — блокировку не удалось взять до отмены контекста.
var ErrLockTimeout = errors.New("lock wait canceled")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker — блокировка с единственным владельцем по ключу поверх redis.
// Ключ живёт не дольше ttl, поэтому упавший процесс не держит его вечно.
type Locker struct {
	db    *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewLocker создаёт блокировку поверх соединения кэша.
func NewLocker(c *Cache, ttl time.Duration) *Locker {
	return &Locker{db: c.Db, ttl: ttl, retry: 20 * time.Millisecond}
}

// Lock ждёт, пока ключ освободится, и захватывает его.
// Возвращённую функцию нужно вызвать, чтобы снять блокировку.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	const op = "cache.Locker.Lock"

	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.db.SetNX(ctx, lockKeyPrefix+key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.unlock(ctx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlock(ctx context.Context, key, token string) error {
	const op = "cache.Locker.unlock"
	if err := unlockScript.Run(ctx, l.db, []string{lockKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
