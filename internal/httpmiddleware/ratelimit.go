package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ClientIP charges requests to the caller's address.
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// idleSweep is how many admissions pass between sweeps of full, idle buckets.
const idleSweep = 512

// Limiter is a per-key token bucket kept in process memory. Scanner stations
// burst at lesson changes, so capacity and refill are both per minute.
type Limiter struct {
	capacity float64
	perSec   float64
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewLimiter allows perMinute requests per key, with bursts up to capacity.
// A capacity of zero means perMinute. perMinute <= 0 disables limiting.
func NewLimiter(capacity, perMinute int) *Limiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &Limiter{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// GinMiddleware rejects requests over the limit with 429 and a Retry-After
// header. A nil key charges by client IP.
func (l *Limiter) GinMiddleware(key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if l.perSec <= 0 {
			c.Next()
			return
		}
		ok, wait := l.take(key(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}

// take spends one token for key, or reports how long until one is available.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%idleSweep == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, seen: now}
		return true, 0
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / l.perSec * float64(time.Second))
	}
	b.tokens--
	return true, 0
}

// sweep drops buckets that would be full by now; recreating them is equivalent.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if b.tokens+now.Sub(b.seen).Seconds()*l.perSec >= l.capacity {
			delete(l.buckets, k)
		}
	}
}
