package credentials

import (
	"io"
	"net/http"
	"strings"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func unauthorizedClient() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Header:     http.Header{"Content-Type": {"application/vnd.api+json"}},
			Body:       io.NopCloser(strings.NewReader(`{"errors":[{"title":"Unauthorized","detail":"Token is expired"}]}`)),
			Request:    r,
		}, nil
	})}
}
