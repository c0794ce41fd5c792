package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MinTTL is the shortest lock expiry a RedisLocker accepts. Shorter values
// are raised to it so the keep-alive interval and PX expiry stay positive.
const MinTTL = 30 * time.Millisecond

const (
	keyPrefix            = "accountflow:lock:"
	defaultTTL           = 2 * time.Minute
	defaultRetryInterval = 100 * time.Millisecond
)

// Delete and extend only when the stored token is ours.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker implements Locker with SET NX PX and token-checked release.
// Held leases are extended in the background so a run that outlives the TTL
// keeps its lock.
type RedisLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithTTL sets the lock expiry. Non-positive values keep the default and
// values below MinTTL are raised to it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = max(ttl, MinTTL)
		}
	}
}

// WithRetryInterval sets how often a blocked Acquire retries.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLogger sets the logger used for lease extension failures.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker over client.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:        client,
		ttl:           defaultTTL,
		retryInterval: defaultRetryInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

var _ Locker = (*RedisLocker)(nil)

// Acquire polls until the key is set by this caller or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.newLease(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) newLease(key, token string) *redisLease {
	lease := &redisLease{
		locker: l,
		key:    key,
		token:  token,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go lease.keepAlive()
	return lease
}

type redisLease struct {
	locker *RedisLocker
	key    string
	token  string
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	err    error
}

func (l *redisLease) keepAlive() {
	defer close(l.done)
	ticker := time.NewTicker(l.locker.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.locker.ttl/3)
			n, err := extendScript.Run(ctx, l.locker.client, []string{l.key}, l.token, l.locker.ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				l.locker.logger.Warn("lock lease could not be extended",
					"key", l.key,
					"error", err,
				)
			case n == 0:
				l.locker.logger.Warn("lock lease lost", "key", l.key)
				return
			}
		}
	}
}

// Release stops the keep-alive and deletes the key if this lease still owns it.
func (l *redisLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		<-l.done
		err := releaseScript.Run(ctx, l.locker.client, []string{l.key}, l.token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.err = fmt.Errorf("release lock %s: %w", l.key, err)
		}
	})
	return l.err
}
