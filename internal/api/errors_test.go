package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{StatusCode: tt.status})
			assert.ErrorIs(t, err, tt.target)
		})
	}

	assert.NotErrorIs(t, &Error{StatusCode: http.StatusInternalServerError}, ErrNotFound)
	assert.NotErrorIs(t, &Error{StatusCode: http.StatusNotFound}, ErrUnauthorized)
}

func TestError_Message(t *testing.T) {
	err := &Error{
		StatusCode: 422,
		Message:    "is required",
		ValidationErrors: []ValidationError{
			{Field: "name", Message: "is required"},
			{Field: "policy", Message: "must exist"},
		},
		RequestID: "req-1",
	}
	assert.Equal(t, "API error 422: is required (name is required; policy must exist) (request_id: req-1)", err.Error())
	assert.Equal(t, "API error 500", (&Error{StatusCode: 500}).Error())
}

func TestClassify_PointerExtraction(t *testing.T) {
	body := []byte(`{"errors":[{"detail":"is required","source":{"pointer":"/data/attributes/name"}}]}`)

	apiErr := classify(http.StatusUnprocessableEntity, body, "")
	require.Len(t, apiErr.ValidationErrors, 1)
	assert.Equal(t, "name", apiErr.ValidationErrors[0].Field)
	assert.Equal(t, "is required", apiErr.ValidationErrors[0].Message)
	assert.Equal(t, "is required", apiErr.Message)
}

func TestClassify_ValidationSources(t *testing.T) {
	body := []byte(`{"errors":[
		{"title":"Unprocessable resource","detail":"must exist","code":"POLICY_NOT_FOUND","source":{"pointer":"/data/relationships/policy"}},
		{"title":"Bad parameter","detail":"is invalid","source":{"parameter":"page[size]"}},
		{"title":"Unprocessable resource","detail":"no source"},
		{"title":"Only a title","source":{"pointer":"/data/attributes/metadata/tier"}},
		{"detail":"odd pointer","source":{"pointer":"/data"}}
	]}`)

	apiErr := classify(http.StatusUnprocessableEntity, body, "")
	assert.Equal(t, "POLICY_NOT_FOUND", apiErr.Code)
	assert.Equal(t, []ValidationError{
		{Field: "policy", Message: "must exist", Code: "POLICY_NOT_FOUND"},
		{Field: "page[size]", Message: "is invalid"},
		{Field: "metadata/tier", Message: "Only a title"},
		{Field: "data", Message: "odd pointer"},
	}, apiErr.ValidationErrors)
}

func TestClassify_NonValidationStatusHasNoFields(t *testing.T) {
	body := []byte(`{"errors":[{"detail":"bad","source":{"pointer":"/data/attributes/name"}}]}`)
	apiErr := classify(http.StatusBadRequest, body, "")
	assert.Empty(t, apiErr.ValidationErrors)
	assert.Equal(t, "bad", apiErr.Message)
}

func TestClassify_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"title only", 403, `{"errors":[{"title":"Access denied"}]}`, "Access denied"},
		{"empty error object", 500, `{"errors":[{}]}`, "request failed with status 500"},
		{"numeric status", 409, `{"errors":[{"status":409,"detail":"conflict"}]}`, "conflict"},
		{"wrong detail type", 400, `{"errors":[{"detail":42}]}`, "request failed with status 400"},
		{"unauthorized without body", 401, ``, "unauthorized"},
		{"plain text", 503, `Service Unavailable`, "request failed with status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := classify(tt.status, []byte(tt.body), "")
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestFieldFromPointer(t *testing.T) {
	assert.Equal(t, "name", fieldFromPointer("/data/attributes/name"))
	assert.Equal(t, "user", fieldFromPointer("/data/relationships/user"))
	assert.Equal(t, "type", fieldFromPointer("/data/type"))
	assert.Equal(t, "data", fieldFromPointer("/data/"))
	assert.Equal(t, "", fieldFromPointer(""))
}

func TestAsError(t *testing.T) {
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)

	apiErr, ok := AsError(fmt.Errorf("ctx: %w", &Error{StatusCode: 404}))
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)
}
