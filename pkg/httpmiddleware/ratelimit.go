package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts a request for key and decides whether it may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return cfg
}

// window tracks request counts across two adjacent windows.
type window struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// MemoryLimiter is an in-process sliding window limiter. The previous window
// is weighted by how much of it still overlaps the sliding window.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryLimiter creates a MemoryLimiter.
func NewMemoryLimiter(max int, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  w,
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.windows[key]
	if !ok {
		e = &window{currStart: now}
		l.windows[key] = e
	}

	if now.Sub(e.currStart) >= l.window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(l.window)
		if now.Sub(e.prevStart) >= 2*l.window {
			e.prevCount = 0
		}
	}

	elapsed := now.Sub(e.currStart)
	overlap := max(1.0-elapsed.Seconds()/l.window.Seconds(), 0)
	effective := e.prevCount*overlap + e.currCount
	resetAt := e.currStart.Add(l.window)

	if effective >= float64(l.max) {
		return Decision{ResetAt: resetAt}, nil
	}
	e.currCount++
	effective++

	return Decision{
		Allowed:   true,
		Remaining: max(int(float64(l.max)-effective), 0),
		ResetAt:   resetAt,
	}, nil
}

// Cleanup removes keys whose windows have fully expired.
func (l *MemoryLimiter) Cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.windows {
		if now.Sub(e.currStart) >= 2*l.window {
			delete(l.windows, key)
		}
	}
}

// Run evicts expired keys every two windows until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Cleanup(now)
		}
	}
}

// RedisLimiter is a sliding log limiter shared by every API replica. Each
// request is a sorted set member scored by its timestamp.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

// NewRedisLimiter creates a RedisLimiter storing keys under prefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string, max int, w time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    max,
		window: w,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	resetAt := now.Add(l.window)
	redisKey := l.prefix + key
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, errors.Wrap(err, "exec")
	}

	current := int(count.Val())
	return Decision{
		Allowed:   current <= l.max,
		Remaining: max(l.max-current, 0),
		ResetAt:   resetAt,
	}, nil
}

// RateLimit enforces limiter per request key. Rejected requests get 429 with
// a JSON body and Retry-After. Every response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset. A failing limiter lets the
// request through.
func RateLimit(cfg RateLimitConfig, limiter Limiter) Middleware {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			d, err := limiter.Allow(ctx, cfg.KeyFunc(r), time.Now())
			if err != nil {
				zctx.From(ctx).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retryAfter := max(time.Until(d.ResetAt), 0)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request, checking
// X-Forwarded-For first, then X-Real-IP, then falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
