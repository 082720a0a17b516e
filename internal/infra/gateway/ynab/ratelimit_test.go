package ynab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests control the limiter's notion of now.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_AdmitsUpToLimit(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Reserve())
	}
	assert.Equal(t, 0, rl.Remaining())
}

func TestRateLimiter_FailsWithWaitWhenFull(t *testing.T) {
	rl, clock := newTestLimiter(200, 3600*time.Second)

	for i := 0; i < 200; i++ {
		require.NoError(t, rl.Reserve())
		clock.advance(time.Second)
	}

	err := rl.Reserve()
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, 3600*time.Second)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Hour)

	require.NoError(t, rl.Reserve())
	require.NoError(t, rl.Reserve())
	require.Error(t, rl.Reserve())

	// After the window passes, both slots free up.
	clock.advance(time.Hour + time.Second)
	assert.Equal(t, 2, rl.Remaining())
	require.NoError(t, rl.Reserve())
}

func TestRateLimiter_WaitMatchesOldestEntry(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Hour)

	require.NoError(t, rl.Reserve())
	clock.advance(10 * time.Minute)

	var rle *RateLimitError
	require.ErrorAs(t, rl.Reserve(), &rle)
	assert.Equal(t, 50*time.Minute, rle.RetryAfter)
}

func TestRateLimiter_RemainingDoesNotMutate(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Hour)

	require.NoError(t, rl.Reserve())
	assert.Equal(t, 2, rl.Remaining())
	assert.Equal(t, 2, rl.Remaining())
}
