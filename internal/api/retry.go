package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy configures how rate-limited (429) requests are retried.
// Only 429 is ever retried.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry when the server sends
	// no Retry-After. It doubles on each following retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff. Zero means no cap. A server
	// Retry-After is never capped.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default policy: 3 retries, 1s doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// ShouldRetry reports whether another attempt is allowed after retries
// retries have already been made.
func (p RetryPolicy) ShouldRetry(retries int) bool {
	return retries < p.MaxRetries
}

// Delay returns how long to wait before the retry following attempt
// (zero-based). retryAfter is the raw Retry-After header value.
func (p RetryPolicy) Delay(attempt int, retryAfter string, now time.Time) time.Duration {
	if d, ok := parseRetryAfter(retryAfter, now); ok {
		return d
	}

	delay := p.BaseDelay << uint(attempt)
	if p.BaseDelay > 0 && (attempt >= 62 || delay < p.BaseDelay) {
		delay = time.Duration(math.MaxInt64)
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// maxRetryAfterSeconds is the largest delta-seconds a time.Duration can hold.
const maxRetryAfterSeconds = float64(math.MaxInt64) / float64(time.Second)

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(secs) || secs < 0 || secs >= maxRetryAfterSeconds {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
