package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

var (
	// ErrCouldNotConnect wraps failures that happen before a response is received.
	ErrCouldNotConnect = errors.New("httpx: could not connect")
	// ErrNoSession is returned when an authenticated request is issued for a
	// user that holds no session cookie.
	ErrNoSession = errors.New("httpx: no session cookie for user")
)

// RetryPolicy controls the retry behaviour for transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	RetryIf    func(resp *http.Response, err error) bool
}

// DefaultRetryPolicy issues every request exactly once. Callers opt into
// retries by raising MaxRetries.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 0,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSession shares an existing cookie store between clients.
func WithSession(s *Session) Option {
	return func(c *Client) {
		if s != nil {
			c.session = s
		}
	}
}

// Client wraps http.Client with base URL, retry and session handling.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	headers     http.Header
	retryPolicy RetryPolicy
	logger      hclog.Logger
	session     *Session
}

// Request describes a single outbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// User selects the session cookie attached to the request. Empty means
	// the endpoint is unauthenticated.
	User string

	// JSON, when set, is encoded as the request body.
	JSON any

	DisableRetry bool
	Body         io.Reader
	GetBody      func() (io.ReadCloser, error)
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpx: invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers:     make(http.Header),
		retryPolicy: DefaultRetryPolicy,
		logger:      hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.session == nil {
		c.session = NewSession()
	}
	if c.retryPolicy.MaxRetries < 0 {
		c.retryPolicy.MaxRetries = 0
	}
	if c.retryPolicy.BaseDelay <= 0 {
		c.retryPolicy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if c.retryPolicy.MaxDelay <= 0 {
		c.retryPolicy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Session returns the cookie store shared by every request of this client.
func (c *Client) Session() *Session {
	return c.session
}

// Logger returns the client logger.
func (c *Client) Logger() hclog.Logger {
	return c.logger
}

// Do executes the provided request and returns the response, or an HTTPError
// for any status outside 2xx.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}

	var cookie string
	if req.User != "" {
		v, ok := c.session.Get(req.User)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrNoSession, req.User)
		}
		cookie = v
	}

	if req.JSON != nil {
		data, err := jsonMarshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("httpx: encode request body: %w", err)
		}
		req.Body = nil
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("Content-Type", "application/json")
	}

	if req.DisableRetry {
		if req.Body == nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
		req.GetBody = nil
	} else if req.GetBody == nil && req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body = nil
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var (
		resp    *http.Response
		attempt int
	)
	operation := func() error {
		body, err := c.prepareBody(req, attempt == 0)
		attempt++
		if err != nil {
			return backoff.Permanent(err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header = cloneHeader(c.headers)
		for k, values := range req.Header {
			for _, v := range values {
				httpReq.Header.Add(k, v)
			}
		}
		if cookie != "" {
			httpReq.Header.Set("Cookie", (&http.Cookie{Name: CookieName, Value: cookie}).String())
		}

		start := time.Now()
		r, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Debug("request failed", "method", req.Method, "path", req.Path, "attempt", attempt, "error", err)
			err = fmt.Errorf("%w: %w", ErrCouldNotConnect, err)
			if !c.shouldRetry(req, nil, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		c.logger.Debug("request", "method", req.Method, "path", req.Path, "status", r.StatusCode,
			"attempt", attempt, "duration", time.Since(start))

		if r.StatusCode < 200 || r.StatusCode > 299 {
			retry := c.shouldRetry(req, r, nil)
			err := c.handleError(r)
			if !retry {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx, req)); err != nil {
		return nil, err
	}
	return resp, nil
}

// DoJSON executes req and decodes a JSON response body into out. A nil out
// discards the body.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	data, err := ReadAllAndClose(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read response body: %w", err)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("httpx: empty response body for %s %s", req.Method, req.Path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpx: decode response body: %w", err)
	}
	return nil
}

// DoSession behaves like DoJSON and additionally stores the session cookie
// of the response under user. A 2xx answer without the cookie is an error.
func (c *Client) DoSession(ctx context.Context, req *Request, user string, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	data, err := ReadAllAndClose(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read response body: %w", err)
	}
	if !c.CaptureSession(user, resp) {
		return fmt.Errorf("httpx: %s %s: response carried no %s cookie", req.Method, req.Path, CookieName)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpx: decode response body: %w", err)
	}
	return nil
}

// CaptureSession stores the session cookie carried by resp for user. It
// reports whether a cookie was found.
func (c *Client) CaptureSession(user string, resp *http.Response) bool {
	if resp == nil {
		return false
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName && ck.Value != "" {
			c.session.Set(user, ck.Value)
			return true
		}
	}
	return false
}

func (c *Client) newBackOff(ctx context.Context, req *Request) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryPolicy.BaseDelay
	exp.MaxInterval = c.retryPolicy.MaxDelay
	exp.RandomizationFactor = c.retryPolicy.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := c.retryPolicy.MaxRetries
	if req.DisableRetry {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

func (c *Client) prepareBody(req *Request, first bool) (io.ReadCloser, error) {
	if first && req.Body != nil {
		body := req.Body
		req.Body = nil
		if rc, ok := body.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(body), nil
	}
	if req.GetBody != nil {
		return req.GetBody()
	}
	return http.NoBody, nil
}

func (c *Client) shouldRetry(req *Request, resp *http.Response, err error) bool {
	if req.DisableRetry || c.retryPolicy.MaxRetries == 0 {
		return false
	}
	if c.retryPolicy.RetryIf != nil {
		return c.retryPolicy.RetryIf(resp, err)
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		(resp.StatusCode >= 500 && resp.StatusCode <= 599)
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func (c *Client) buildURL(path string, q url.Values) (string, error) {
	if strings.Contains(path, "?") {
		return "", fmt.Errorf("httpx: path %q must not carry a query", path)
	}
	full := c.baseURL.JoinPath(strings.TrimPrefix(path, "/"))
	if len(q) > 0 {
		full.RawQuery = q.Encode()
	}
	return full.String(), nil
}

func (c *Client) handleError(resp *http.Response) error {
	defer closeBody(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
	httpErr.JSON = decodeJSONBody(body)
	httpErr.Message, httpErr.Code = decodeEnvelope(body)
	return httpErr
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}

// MarshalJSON encodes v without HTML escaping, matching what the server
// stores for values embedded in string fields.
func MarshalJSON(v any) ([]byte, error) {
	return jsonMarshal(v)
}

func jsonMarshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	return data, nil
}
