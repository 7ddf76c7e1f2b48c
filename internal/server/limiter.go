package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; beyond it, idle buckets are swept
const maxTrackedClients = 10000

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter implements per-client rate limiting, one token bucket per key
type Limiter struct {
	clients map[string]*clientBucket
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	now     func() time.Time
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		clients: make(map[string]*clientBucket),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Reserve takes a token for key. When none is available it returns false and
// how long the client should wait before retrying.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()
	r := l.bucket(key, now).ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Allow reports whether key may make a request now
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) bucket(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.clients[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	if len(l.clients) >= maxTrackedClients {
		l.sweep(now)
	}

	b := &clientBucket{limiter: rate.NewLimiter(l.rate, l.burst), lastSeen: now}
	l.clients[key] = b
	return b.limiter
}

// sweep drops buckets idle long enough to have refilled completely. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	refill := time.Minute
	if l.rate > 0 {
		refill = time.Duration(float64(l.burst) / float64(l.rate) * float64(time.Second))
	}
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > refill {
			delete(l.clients, key)
		}
	}
}

// Middleware rejects requests over the client's rate with 429 and Retry-After.
// Clients are keyed by echo's RealIP.
func (l *Limiter) Middleware(onLimited func(c echo.Context)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := l.Reserve(c.RealIP())
			if ok {
				return next(c)
			}
			if onLimited != nil {
				onLimited(c)
			}
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(max(1, seconds)))
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}
