package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter keeps a sliding window of request times per client IP.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
	seen int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// and if not, how long until the oldest hit leaves the window.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, kept[0].Sub(cutoff)
	}
	l.hits[key] = append(kept, now)

	l.seen++
	if l.seen%1024 == 0 {
		l.sweep(cutoff)
	}
	return true, 0
}

func (l *RateLimiter) sweep(cutoff time.Time) {
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

// Middleware answers 429 with Retry-After once a client exceeds the limit.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(ClientIP(r))
			if !ok {
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeMessage(w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next(w, r)
		}
	}
}
