package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client key (usually the IP).
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLoginLimiter allows perMinute attempts per key with the given burst.
// A non-positive perMinute disables limiting.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Inf
	if perMinute > 0 {
		r = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &LoginLimiter{limiters: make(map[string]*rate.Limiter), rate: r, burst: burst}
}

// Allow reports whether key may attempt a login now.
func (l *LoginLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *LoginLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Cleanup drops all limiters once the table grows past max entries.
func (l *LoginLimiter) Cleanup(max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) > max {
		l.limiters = make(map[string]*rate.Limiter)
	}
}
