package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched by *Error via errors.Is.
var (
	// ErrUnauthorized indicates the bearer token is invalid or expired (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the token lacks permission for the resource (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request document failed validation (422).
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited indicates retries were exhausted on 429 responses.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrMissingAccount is returned when an account-relative endpoint is used
// without an account identifier in the credentials.
var ErrMissingAccount = errors.New("account ID is required for account-relative endpoints")

const rateLimitMessage = "rate limit exceeded"

// ValidationError is a single field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error is a classified API failure. Transport failures are never wrapped
// in an Error.
type Error struct {
	StatusCode       int
	Code             string
	Message          string
	ValidationErrors []ValidationError
	Errors           []ErrorObject
	RequestID        string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "API error %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.ValidationErrors) > 0 {
		parts := make([]string, len(e.ValidationErrors))
		for i, v := range e.ValidationErrors {
			parts[i] = v.Field + " " + v.Message
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, "; "))
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request_id: %s)", e.RequestID)
	}
	return b.String()
}

// Is implements errors.Is for sentinel error matching.
func (e *Error) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusUnprocessableEntity:
		return target == ErrValidation
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return false
}

// AsError extracts a classified error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func genericMessage(status int) string {
	return fmt.Sprintf("request failed with status %d", status)
}

// parseErrorDocument decodes the known error document shape. Anything that
// deviates from it (non-JSON, wrong types, no errors) reports ok=false.
func parseErrorDocument(body []byte) ([]ErrorObject, bool) {
	var doc struct {
		Errors []ErrorObject `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	if len(doc.Errors) == 0 {
		return nil, false
	}
	return doc.Errors, true
}

// classify turns a failed response into an *Error.
func classify(status int, body []byte, requestID string) *Error {
	apiErr := &Error{
		StatusCode: status,
		RequestID:  requestID,
	}

	objs, ok := parseErrorDocument(body)
	if !ok {
		apiErr.Message = genericMessage(status)
		if status == http.StatusUnauthorized {
			apiErr.Message = "unauthorized"
		}
		return apiErr
	}

	apiErr.Errors = objs
	first := objs[0]
	apiErr.Code = first.Code
	switch {
	case first.Detail != "":
		apiErr.Message = first.Detail
	case first.Title != "":
		apiErr.Message = first.Title
	default:
		apiErr.Message = genericMessage(status)
	}

	if status == http.StatusUnprocessableEntity {
		apiErr.ValidationErrors = validationErrors(objs)
	}
	return apiErr
}

func validationErrors(objs []ErrorObject) []ValidationError {
	var out []ValidationError
	for _, obj := range objs {
		if obj.Source == nil {
			continue
		}
		var field string
		switch {
		case obj.Source.Pointer != "":
			field = fieldFromPointer(obj.Source.Pointer)
		case obj.Source.Parameter != "":
			field = obj.Source.Parameter
		default:
			continue
		}
		msg := obj.Detail
		if msg == "" {
			msg = obj.Title
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: msg,
			Code:    obj.Code,
		})
	}
	return out
}

// fieldFromPointer maps a JSON pointer to a form field name:
// /data/attributes/name -> name, /data/relationships/policy -> policy.
func fieldFromPointer(pointer string) string {
	for _, prefix := range []string{"/data/attributes/", "/data/relationships/"} {
		if rest, ok := strings.CutPrefix(pointer, prefix); ok && rest != "" {
			return rest
		}
	}
	trimmed := strings.TrimRight(pointer, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
