package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.True(t, p.ShouldRetry(0))
	assert.True(t, p.ShouldRetry(2))
	assert.False(t, p.ShouldRetry(3))
	assert.False(t, p.ShouldRetry(4))
}

func TestRetryPolicy_Delay(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		policy     RetryPolicy
		attempt    int
		retryAfter string
		want       time.Duration
	}{
		{"first backoff", DefaultRetryPolicy(), 0, "", time.Second},
		{"second backoff doubles", DefaultRetryPolicy(), 1, "", 2 * time.Second},
		{"third backoff doubles again", DefaultRetryPolicy(), 2, "", 4 * time.Second},
		{"retry-after seconds", DefaultRetryPolicy(), 2, "2", 2 * time.Second},
		{"retry-after fractional", DefaultRetryPolicy(), 0, "0.5", 500 * time.Millisecond},
		{"retry-after http date", DefaultRetryPolicy(), 0, now.Add(3 * time.Second).Format(http.TimeFormat), 3 * time.Second},
		{"retry-after date in past", DefaultRetryPolicy(), 0, now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage retry-after ignored", DefaultRetryPolicy(), 1, "soon", 2 * time.Second},
		{"negative retry-after ignored", DefaultRetryPolicy(), 0, "-3", time.Second},
		{"NaN retry-after ignored", DefaultRetryPolicy(), 0, "NaN", time.Second},
		{"Inf retry-after ignored", DefaultRetryPolicy(), 1, "Inf", 2 * time.Second},
		{"-Inf retry-after ignored", DefaultRetryPolicy(), 0, "-Inf", time.Second},
		{"overflowing retry-after ignored", DefaultRetryPolicy(), 2, "1e300", 4 * time.Second},
		{"out of range retry-after ignored", DefaultRetryPolicy(), 0, "1e400", time.Second},
		{"max delay caps backoff", RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}, 4, "", 3 * time.Second},
		{"max delay does not cap retry-after", RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}, 0, "10", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Delay(tt.attempt, tt.retryAfter, now))
		})
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
