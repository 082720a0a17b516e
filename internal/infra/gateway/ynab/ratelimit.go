package ynab

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RateLimitError is returned when a reservation would exceed the remote API
// quota. RetryAfter is how long until the oldest reservation leaves the
// window.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter.Round(time.Second))
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// RateLimiter tracks a sliding window of outbound request timestamps and
// gates every remote call. YNAB allows 200 requests per rolling hour.
//
// Reserve either admits immediately or fails fast with a computed wait; the
// caller decides whether to wait and retry.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	sent   []time.Time
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter admitting limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		sent:   make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Reserve claims one request slot. It must be called before every remote
// request. Returns a *RateLimitError when the window is full.
func (r *RateLimiter) Reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evict(now)

	if len(r.sent) >= r.limit {
		wait := r.sent[0].Add(r.window).Sub(now)
		return &RateLimitError{
			RetryAfter: wait,
			Message:    fmt.Sprintf("rate limit of %d requests per %s reached", r.limit, r.window),
		}
	}

	r.sent = append(r.sent, now)
	return nil
}

// Remaining returns the number of requests still available in the current
// window without claiming a slot.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(r.now())
	return r.limit - len(r.sent)
}

// evict drops timestamps older than the window. Caller holds the lock.
func (r *RateLimiter) evict(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.sent) && !r.sent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.sent = append(r.sent[:0], r.sent[i:]...)
	}
}
