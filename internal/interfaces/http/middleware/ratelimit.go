package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// ErrCodeAuthRateLimited is returned when login or signup attempts exceed the auth limit
const ErrCodeAuthRateLimited = "AUTH_RATE_LIMIT_EXCEEDED"

// RateLimiter hands each caller key a token bucket holding limit tokens that
// refills over window. Buckets idle for two windows are evicted.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    int
	window   time.Duration
	every    rate.Limit
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts a limiter and its eviction loop. Call Stop when done.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := newRateLimiter(limit, window, time.Now)
	go rl.evictLoop(2 * window)
	return rl
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		every:   rate.Limit(float64(limit) / window.Seconds()),
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (rl *RateLimiter) Limit() int { return rl.limit }

// Stop ends the eviction loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * rl.window)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) bucketFor(key string, now time.Time) *bucket {
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow takes a token for key
func (rl *RateLimiter) Allow(key string) bool {
	_, _, ok := rl.take(key)
	return ok
}

// take spends a token and reports what is left, or how long until the next
// token when the bucket is empty.
func (rl *RateLimiter) take(key string) (remaining int, retryAfter time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	lim := rl.bucketFor(key, now).limiter
	if lim.AllowN(now, 1) {
		return int(lim.TokensAt(now)), 0, true
	}
	r := lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return 0, wait, false
}

// Remaining reports the whole tokens left for key without spending one
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		return rl.limit
	}
	return int(b.limiter.TokensAt(rl.now()))
}

// CallerKey keys authenticated callers by user id and everyone else by IP, so
// customers behind one NAT do not share a budget once logged in.
func CallerKey(c *gin.Context) string {
	if userID := CurrentUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit limits each caller to the limiter's budget
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter, CallerKey, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
}

// AuthRateLimit is the stricter per-IP limit for login and signup
func AuthRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter, func(c *gin.Context) string {
		return "auth:" + c.ClientIP()
	}, ErrCodeAuthRateLimited, "Too many authentication attempts. Please try again later.")
}

func rateLimit(limiter *RateLimiter, keyFunc func(*gin.Context) string, code, message string) gin.HandlerFunc {
	limitHeader := strconv.Itoa(limiter.Limit())
	return func(c *gin.Context) {
		remaining, retryAfter, ok := limiter.take(keyFunc(c))
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Fail(code, message, c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
