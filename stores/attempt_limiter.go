package stores

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-redis/redis"
	pe "wuyrush.io/valentine/errors"
)

// AttemptLimiter counts failed PIN attempts per key (typically viewer IP plus experience) within a
// sliding window which starts at the first failure.
type AttemptLimiter interface {
	// Exceeded reports whether key used up its failed attempts of the current window
	Exceeded(key string) (bool, *pe.Err)
	Fail(key string) *pe.Err
	// Reset forgets failed attempts of key, e.g. after the right PIN was entered
	Reset(key string) *pe.Err
}

// AttemptKey forms the limiter key of a viewer trying PINs of an experience.
func AttemptKey(viewerIP, uniqueID string) string {
	return fmt.Sprintf("pinAttempts.%s.%s", uniqueID, viewerIP)
}

// RedisAttemptLimiter is an AttemptLimiter shared by all service instances through Redis.
type RedisAttemptLimiter struct {
	DB     *redis.Client
	Max    int64
	Window time.Duration
}

func (l *RedisAttemptLimiter) Exceeded(key string) (bool, *pe.Err) {
	n, err := l.DB.Get(key).Int64()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, pe.NewDependencyFailure("error reading PIN attempts").WithCause(err)
	}
	return n >= l.Max, nil
}

func (l *RedisAttemptLimiter) Fail(key string) *pe.Err {
	n, err := l.DB.Incr(key).Result()
	if err != nil {
		return pe.NewDependencyFailure("error counting PIN attempt").WithCause(err)
	}
	// window starts at the first failure
	if n == 1 {
		if _, err := l.DB.Expire(key, l.Window).Result(); err != nil {
			// a counter without TTL would lock the viewer out for good
			l.DB.Del(key)
			return pe.NewDependencyFailure("error setting PIN attempt window").WithCause(err)
		}
	}
	return nil
}

func (l *RedisAttemptLimiter) Reset(key string) *pe.Err {
	if _, err := l.DB.Del(key).Result(); err != nil {
		return pe.NewDependencyFailure("error resetting PIN attempts").WithCause(err)
	}
	return nil
}

type attempts struct {
	count int
	until time.Time
}

// LocalAttemptLimiter is an in-process AttemptLimiter. Its LRU cache bounds memory use; keys evicted
// early simply lose their count.
type LocalAttemptLimiter struct {
	max    int
	window time.Duration
	clock  gcache.Clock
	mu     sync.Mutex
	cache  gcache.Cache
}

func NewLocalAttemptLimiter(max int, window time.Duration, size int) *LocalAttemptLimiter {
	return newLocalAttemptLimiter(max, window, size, gcache.NewRealClock())
}

func newLocalAttemptLimiter(max int, window time.Duration, size int, clock gcache.Clock) *LocalAttemptLimiter {
	return &LocalAttemptLimiter{
		max:    max,
		window: window,
		clock:  clock,
		cache:  gcache.New(size).LRU().Clock(clock).Build(),
	}
}

func (l *LocalAttemptLimiter) get(key string) (attempts, bool) {
	v, err := l.cache.Get(key)
	if err != nil {
		return attempts{}, false
	}
	return v.(attempts), true
}

func (l *LocalAttemptLimiter) Exceeded(key string) (bool, *pe.Err) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.get(key)
	return ok && a.count >= l.max, nil
}

func (l *LocalAttemptLimiter) Fail(key string) *pe.Err {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	a, ok := l.get(key)
	if !ok || !now.Before(a.until) {
		a = attempts{until: now.Add(l.window)}
	}
	a.count++
	if err := l.cache.SetWithExpire(key, a, a.until.Sub(now)); err != nil {
		return pe.NewServiceFailure("error counting PIN attempt").WithCause(err)
	}
	return nil
}

func (l *LocalAttemptLimiter) Reset(key string) *pe.Err {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(key)
	return nil
}
