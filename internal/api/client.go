package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/logging"
	"github.com/telhawk-systems/keyhawk/internal/requestid"
)

// DefaultBaseURL is the licensing provider's public endpoint.
const DefaultBaseURL = "https://api.keygen.sh/v1"

const defaultUserAgent = "keyhawk/0.1"

// Request describes one call against the licensing API.
type Request struct {
	// Method is one of GET, POST, PATCH, PUT, DELETE.
	Method string
	// Endpoint is an absolute URL, a path rooted at the base URL ("/me"),
	// or a path relative to /accounts/{accountId}/ ("licenses/abc").
	Endpoint string
	// Body is JSON-encoded when non-nil, normally a *ResourceDocument.
	Body any
	// Params are appended to the query string.
	Params url.Values
	// Headers override the defaults. Authorization is replaced by the
	// bearer token whenever one is available.
	Headers http.Header
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into v. An empty body (204) leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Document decodes the body as a JSON:API document.
func (r *Response) Document() (*Document, error) {
	var doc Document
	if err := r.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Client performs authenticated JSON:API calls. It holds no per-call state
// and is safe for concurrent use.
type Client struct {
	baseURL     string
	credentials CredentialProvider
	invalidator CredentialInvalidator
	httpClient  *http.Client
	retry       RetryPolicy
	logger      *logging.Logger
	observers   []Observer
	userAgent   string
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL used when credentials carry none.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy sets the rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithInvalidator registers the collaborator told about rejected tokens.
func WithInvalidator(inv CredentialInvalidator) Option {
	return func(c *Client) {
		c.invalidator = inv
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver adds a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observers = append(c.observers, o)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithSleep replaces the backoff wait. Tests use it to observe delays
// without waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// New creates a new API client reading credentials from creds.
func New(creds CredentialProvider, opts ...Option) *Client {
	if creds == nil {
		creds = StaticCredentials(Credentials{})
	}

	c := &Client{
		baseURL:     DefaultBaseURL,
		credentials: creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:     DefaultRetryPolicy(),
		logger:    logging.Discard(),
		userAgent: defaultUserAgent,
		sleep:     sleepContext,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Credentials returns the credentials the next call would use.
func (c *Client) Credentials(ctx context.Context) (Credentials, error) {
	return c.credentials.Credentials(ctx)
}

// Get is shorthand for a GET Do.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, Params: params})
}

// Do performs one logical call, retrying on 429 per the retry policy.
//
// On success the raw 2xx body is returned. Failing statuses yield an
// *Error; transport failures are returned unmodified.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, reqID := requestid.Ensure(ctx)
	start := time.Now()

	info := CallInfo{
		Method:    strings.ToUpper(req.Method),
		Endpoint:  req.Endpoint,
		RequestID: reqID,
	}

	resp, err := c.do(ctx, req, &info)

	info.Duration = time.Since(start)
	info.Err = err
	if resp != nil {
		info.StatusCode = resp.StatusCode
	} else if apiErr, ok := AsError(err); ok {
		info.StatusCode = apiErr.StatusCode
	}
	for _, o := range c.observers {
		o.ObserveCall(ctx, info)
	}

	return resp, err
}

func (c *Client) do(ctx context.Context, req Request, info *CallInfo) (*Response, error) {
	method := info.Method
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
	case "":
		method = http.MethodGet
		info.Method = method
	default:
		return nil, fmt.Errorf("unsupported method %q", req.Method)
	}

	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	info.AccountID = creds.AccountID

	target, err := c.resolveURL(creds, req.Endpoint, req.Params)
	if err != nil {
		return nil, err
	}
	info.URL = target

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	log := c.logger.With(logging.Method(method), logging.Path(req.Endpoint))

	for attempt := 0; ; attempt++ {
		info.Attempts = attempt + 1

		httpReq, err := c.newRequest(ctx, method, target, body, creds.Token, req.Headers, info.RequestID)
		if err != nil {
			return nil, err
		}

		log.DebugContext(ctx, "api request", logging.Attempt(attempt))
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusNoContent:
			resp.Body.Close()
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header}, nil

		case http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			drain(resp)

			if !c.retry.ShouldRetry(attempt) {
				log.WarnContext(ctx, "rate limit retries exhausted", logging.Attempt(attempt))
				return nil, &Error{
					StatusCode: http.StatusTooManyRequests,
					Message:    rateLimitMessage,
					RequestID:  info.RequestID,
				}
			}

			delay := c.retry.Delay(attempt, retryAfter, c.now())
			log.WarnContext(ctx, "rate limited, backing off", logging.Attempt(attempt), logging.RetryAfter(delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := classify(resp.StatusCode, data, info.RequestID)
			log.DebugContext(ctx, "api error", logging.Status(resp.StatusCode), logging.Error(apiErr))
			if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
				c.invalidate(ctx)
			}
			return nil, apiErr
		}

		if readErr != nil {
			return nil, fmt.Errorf("failed to read response: %w", readErr)
		}
		if len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
			return nil, fmt.Errorf("failed to decode response: invalid JSON from %s", req.Endpoint)
		}

		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
	}
}

func (c *Client) invalidate(ctx context.Context) {
	if c.invalidator == nil {
		return
	}
	if err := c.invalidator.InvalidateCredentials(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear rejected credentials", logging.Error(err))
	}
}

func (c *Client) newRequest(ctx context.Context, method, target string, body []byte, token string, overrides http.Header, reqID string) (*http.Request, error) {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", MediaType)
	req.Header.Set("Content-Type", MediaType)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestid.Header, reqID)

	for key, values := range overrides {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	// Always last: the caller cannot replace the stored token.
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (c *Client) resolveURL(creds Credentials, endpoint string, params url.Values) (string, error) {
	base := c.baseURL
	if creds.BaseURL != "" {
		base = strings.TrimRight(creds.BaseURL, "/")
	}

	var raw string
	switch {
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		raw = endpoint
	case strings.HasPrefix(endpoint, "/"):
		raw = base + endpoint
	default:
		if creds.AccountID == "" {
			return "", ErrMissingAccount
		}
		raw = base + "/accounts/" + url.PathEscape(creds.AccountID) + "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// drain discards a small remainder of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
