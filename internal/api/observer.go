package api

import (
	"context"
	"time"
)

// CallInfo describes one completed logical call, including all its retries.
type CallInfo struct {
	Method     string
	Endpoint   string
	URL        string
	AccountID  string
	RequestID  string
	StatusCode int // 0 when no response was received
	Attempts   int
	Duration   time.Duration
	Err        error
}

// Retries returns the number of retries performed.
func (c CallInfo) Retries() int {
	if c.Attempts <= 1 {
		return 0
	}
	return c.Attempts - 1
}

// Observer is notified once per logical call after it finishes.
// Implementations must not block for long; they run on the caller's goroutine.
type Observer interface {
	ObserveCall(ctx context.Context, info CallInfo)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, info CallInfo)

// ObserveCall implements Observer.
func (f ObserverFunc) ObserveCall(ctx context.Context, info CallInfo) {
	f(ctx, info)
}
