// Package api is the HTTP client for the licensing platform's JSON:API.
//
// Every call goes through [Client.Do], which injects the operator's bearer
// token, encodes request documents as application/vnd.api+json and turns
// failing responses into a classified [*Error].
//
// # Endpoints
//
// Endpoints are resolved against the base URL from the credentials (or
// [DefaultBaseURL]):
//
//   - "https://..." is used as-is.
//   - "/me" is relative to the base URL.
//   - "licenses/abc" is relative to /accounts/{accountId}/.
//
// # Rate Limiting
//
// Only HTTP 429 is retried. The client honors Retry-After exactly when the
// server sends it, otherwise it waits 1s, 2s, 4s. After 3 retries the call
// fails with an error matching [ErrRateLimited].
//
// # Errors
//
//	if errors.Is(err, api.ErrUnauthorized) {
//	    // stored token was rejected and has been invalidated
//	}
//	if apiErr, ok := api.AsError(err); ok {
//	    for _, v := range apiErr.ValidationErrors {
//	        fmt.Println(v.Field, v.Message)
//	    }
//	}
//
// Network failures are returned unwrapped and are never retried.
package api
