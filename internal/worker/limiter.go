package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces calls per key, typically a platform name, so a burst of links
// to one host never hammers it while other hosts proceed
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter; a non-positive rate disables limiting
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether key may proceed now, consuming a token if so
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// SetRate overrides the rate for one key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.burst
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = lim
	return lim
}
