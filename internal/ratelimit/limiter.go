package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int           // sustained per-IP request rate
	Burst             int           // bucket size; defaults to RequestsPerMinute
	IdleTTL           time.Duration // in-memory buckets unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Burst:             60,
		IdleTTL:           10 * time.Minute,
	}
}

// Metrics receives rate limit notifications
type Metrics interface {
	IncrementRateLimitBlock()
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides per-key rate limiting backed by Redis when available
// and in-memory token buckets otherwise
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      Metrics

	buckets map[string]*bucket
	mu      sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter. redisClient may be nil.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics Metrics) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}

	rl := &RateLimiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		buckets:     make(map[string]*bucket),
		stop:        make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Info("Using in-memory rate limiting")
	}

	go rl.cleanup()

	return rl
}

// AllowIP checks if an IP address may make another request
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, fmt.Sprintf("ratelimit:ip:%s", ip))
}

// Allow checks key against the configured per-minute limit
func (rl *RateLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	var (
		result *Result
		err    error
	)

	if rl.redisLimiter != nil {
		result, err = rl.allowRedis(ctx, key)
		if err != nil {
			slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
			result = rl.allowLocal(key)
		}
	} else {
		result = rl.allowLocal(key)
	}

	if !result.Allowed && rl.metrics != nil {
		rl.metrics.IncrementRateLimitBlock()
	}
	return result, nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (*Result, error) {
	limit := redis_rate.Limit{
		Rate:   rl.config.RequestsPerMinute,
		Burst:  rl.config.Burst,
		Period: time.Minute,
	}

	res, err := rl.redisLimiter.Allow(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

func (rl *RateLimiter) allowLocal(key string) *Result {
	now := time.Now()

	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		rps := rate.Limit(float64(rl.config.RequestsPerMinute) / time.Minute.Seconds())
		b = &bucket{limiter: rate.NewLimiter(rps, rl.config.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	result := &Result{
		Limit:   rl.config.RequestsPerMinute,
		ResetAt: now.Add(time.Minute),
	}

	if b.limiter.AllowN(now, 1) {
		result.Allowed = true
		result.Remaining = max(int(b.limiter.TokensAt(now)), 0)
		return result
	}

	reservation := b.limiter.ReserveN(now, 1)
	if reservation.OK() {
		result.RetryAfter = reservation.DelayFrom(now)
		reservation.CancelAt(now)
	} else {
		result.RetryAfter = time.Minute
	}
	result.ResetAt = now.Add(result.RetryAfter)
	return result
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.IdleTTL {
			delete(rl.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Evicted idle rate limit buckets", "count", evicted)
	}
	return evicted
}

// Config returns the effective configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// Close stops the background cleanup
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	local := len(rl.buckets)
	rl.mu.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":       rl.redisLimiter != nil,
		"local_buckets":       local,
		"requests_per_minute": rl.config.RequestsPerMinute,
		"burst":               rl.config.Burst,
	}

	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}

	return stats
}
