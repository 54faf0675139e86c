package logging

import (
	"log/slog"
	"time"
)

// Common field names so API, audit and server logs line up.
const (
	FieldRequestID  = "request_id"
	FieldAccountID  = "account_id"
	FieldResource   = "resource"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
	FieldDuration   = "duration_ms"
	FieldRetryAfter = "retry_after_ms"
	FieldError      = "error"
)

// AccountID returns a slog attribute for the licensing account.
func AccountID(id string) slog.Attr {
	return slog.String(FieldAccountID, id)
}

// Resource returns a slog attribute for a resource type.
func Resource(name string) slog.Attr {
	return slog.String(FieldResource, name)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Attempt returns a slog attribute for a zero-based attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// RetryAfter returns a slog attribute for a backoff delay.
func RetryAfter(d time.Duration) slog.Attr {
	return slog.Int64(FieldRetryAfter, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
