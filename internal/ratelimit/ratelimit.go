package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Counter is the shared store primitive the limiter needs: an atomic
// increment plus a TTL on freshly created window keys.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *RedisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

type Options struct {
	Counter Counter
	Limit   int64
	Window  time.Duration
	Now     func() time.Time
	Log     zerolog.Logger
}

// Middleware bounds requests per (client IP, route) within fixed windows.
// The counter lives in the shared store so the bound holds across instances.
// When the store is unreachable the limiter fails open: the request passes
// unless a per-process token bucket for the same identity also rejects it.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	// The window index divides by whole seconds; anything shorter would
	// divide by zero, so misconfigured windows get the default.
	if opts.Window < time.Second {
		opts.Window = time.Minute
	}
	fallback := newLocalStore(opts.Limit, opts.Window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := clientIP(r) + ":" + r.URL.Path

			windowSecs := int64(opts.Window / time.Second)
			windowIdx := opts.Now().Unix() / windowSecs
			key := fmt.Sprintf("rate:%s:%d", identity, windowIdx)

			count, err := opts.Counter.Incr(r.Context(), key)
			if err != nil {
				opts.Log.Warn().Err(err).Str("key", key).
					Msg("rate limit store unreachable, failing open")
				if !fallback.allow(identity) {
					reject(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if count == 1 {
				if err := opts.Counter.Expire(r.Context(), key, opts.Window); err != nil {
					opts.Log.Warn().Err(err).Str("key", key).Msg("failed to set window expiry")
				}
			}

			if count > opts.Limit {
				reject(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprint(w, `{"detail":"Rate limit exceeded. Try again later."}`)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// localStore keeps a token bucket per identity so a store outage still
// bounds abuse within this process.
type localStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLocalStore(limit int64, window time.Duration) *localStore {
	return &localStore{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(float64(limit) / window.Seconds()),
		burst:    int(limit),
	}
}

func (s *localStore) allow(identity string) bool {
	s.mu.Lock()
	lim, ok := s.limiters[identity]
	if !ok {
		lim = rate.NewLimiter(s.rps, s.burst)
		s.limiters[identity] = lim
	}
	s.mu.Unlock()
	return lim.Allow()
}
