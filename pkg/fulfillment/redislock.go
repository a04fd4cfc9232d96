package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "fulfillment:sweep:lock"

// releaseScript deletes the lock only if this holder still owns it, so a
// slow sweep cannot release a lock that already expired and was re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX EX. The ttl doubles as the
// staleness timeout: a sweep that dies without releasing loses the lock
// automatically once the ttl elapses.
type RedisLocker struct {
	client *redis.Client
	key    string
	token  string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		key:    sweepLockKey,
		token:  uuid.New().String(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
