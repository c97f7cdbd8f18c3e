package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/pkg/metrics"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/models"
)

const (
	ClassRead  = "read"
	ClassWrite = "write"
)

type bucket struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per caller and request class.
type RateLimiter struct {
	store  *sync.Map // map[string]*bucket
	limits map[string]int
	idle   time.Duration
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	limits := map[string]int{
		ClassRead:  cfg.ReadPerMinute,
		ClassWrite: cfg.WritePerMinute,
	}
	for class, limit := range limits {
		if limit <= 0 {
			limits[class] = 100
		}
	}
	return &RateLimiter{store: &sync.Map{}, limits: limits, idle: 10 * time.Minute}
}

// Run evicts idle buckets until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.store.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastAccess) > rl.idle {
			rl.store.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Allow(key, class string) bool {
	limit, ok := rl.limits[class]
	if !ok {
		limit = 100
	}

	val, _ := rl.store.LoadOrStore(class+":"+key, &bucket{
		limiter: rate.NewLimiter(rate.Limit(float64(limit)/60.0), limit),
	})
	b := val.(*bucket)
	b.mu.Lock()
	b.lastAccess = time.Now()
	b.mu.Unlock()

	return b.limiter.Allow()
}

// Handle picks the read or write budget from the request method.
func (rl *RateLimiter) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class := ClassWrite
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			class = ClassRead
		}

		key := clientIP(r)
		if principal, ok := r.Context().Value(apiContext.Principal).(*models.Principal); ok && principal != nil {
			key = "user:" + principal.ID
		}

		if !rl.Allow(key, class) {
			metrics.RateLimited.WithLabelValues(class).Inc()
			w.Header().Set("Retry-After", "60")
			errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
			return
		}

		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
