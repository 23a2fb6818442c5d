package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yourusername/survey-api/internal/metrics"
	"github.com/yourusername/survey-api/pkg/logger"
)

const (
	redisLimitTimeout = 2 * time.Second
	// fallbackSweepEvery bounds how often idle local buckets are scanned
	fallbackSweepEvery = time.Minute
)

// RateLimitConfig holds fixed-window limits
type RateLimitConfig struct {
	// MaxRequests allowed per Window
	MaxRequests int
	Window      time.Duration
	// Burst of the in-process fallback bucket
	Burst     int
	KeyPrefix string
}

// SubmissionRateLimitConfig limits public answer submissions per IP
func SubmissionRateLimitConfig(perMinute, burst int) RateLimitConfig {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return RateLimitConfig{
		MaxRequests: perMinute,
		Window:      time.Minute,
		Burst:       burst,
		KeyPrefix:   "rl:submit",
	}
}

// WindowCounter counts hits in a shared fixed window
type WindowCounter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter limits requests with a Redis fixed window and falls back to
// per-key token buckets when Redis is unavailable.
type RateLimiter struct {
	counter WindowCounter
	log     *logger.Logger

	mu        sync.Mutex
	fallback  map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

// localBucket is a fallback limiter plus the last time it was used. A bucket
// idle for a full window has refilled, so dropping it loses no state.
type localBucket struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter. counter may be nil.
func NewRateLimiter(counter WindowCounter, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		log:      log.With("component", "RateLimiter"),
		fallback: make(map[string]*localBucket),
		now:      time.Now,
	}
}

// LimitByIP returns a middleware keyed by client IP and route
func (rl *RateLimiter) LimitByIP(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, c.ClientIP(), path)

		if rl.counter != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), redisLimitTimeout)
			count, ttl, err := rl.counter.IncrementWindow(ctx, key, cfg.Window)
			cancel()
			if err == nil {
				rl.applyWindow(c, cfg, count, ttl)
				return
			}
			rl.log.Warn("redis rate limit failed, using local limiter", "key", key, "error", err)
		}

		if !rl.localLimiter(key, cfg).Allow() {
			metrics.RecordRateLimited("local")
			rl.reject(c, int(cfg.Window.Seconds()))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) applyWindow(c *gin.Context, cfg RateLimitConfig, count int64, ttl time.Duration) {
	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	retryAfter := int(ttl.Seconds())
	if retryAfter <= 0 {
		retryAfter = int(cfg.Window.Seconds())
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

	if int(count) > cfg.MaxRequests {
		metrics.RecordRateLimited("redis")
		rl.log.Info("rate limit exceeded", "ip", c.ClientIP(), "count", count, "limit", cfg.MaxRequests)
		rl.reject(c, retryAfter)
		return
	}
	c.Next()
}

func (rl *RateLimiter) reject(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":     false,
		"error":       "Too many requests. Please try again later.",
		"retry_after": retryAfter,
	})
}

func (rl *RateLimiter) localLimiter(key string, cfg RateLimitConfig) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	b, ok := rl.fallback[key]
	if !ok {
		every := cfg.Window / time.Duration(cfg.MaxRequests)
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(every), cfg.Burst), window: cfg.Window}
		rl.fallback[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweepLocked drops buckets idle longer than their window. rl.mu must be held.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < fallbackSweepEvery {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.fallback {
		if now.Sub(b.lastSeen) > b.window {
			delete(rl.fallback, key)
		}
	}
}

// fallbackSize reports how many local buckets are held
func (rl *RateLimiter) fallbackSize() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.fallback)
}
