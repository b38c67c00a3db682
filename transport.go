package couch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/rogerbrinkmann/couchdb-rest-api/internal/logger"
)

const (
	// DefaultURL is the address of a local CouchDB instance.
	DefaultURL = "http://127.0.0.1:5984"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Access credentials
type Credentials struct {
	user     string
	password string
}

// Returns new credentials you can use to open a session.
func NewCredentials(user, password string) *Credentials {
	return &Credentials{user: user, password: password}
}

// User returns the user name of the credentials.
func (c *Credentials) User() string {
	return c.user
}

// Option configures a Transport.
type Option func(*config)

type config struct {
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	rateLimit  float64
	burst      int
}

// WithTimeout sets the timeout of every request. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient makes the transport send requests through client.
// If client has no cookie jar or no timeout, the transport uses a copy with
// a jar attached and the WithTimeout value set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithRateLimit limits the transport to requestsPerSecond requests with
// bursts of up to burst requests. Requests wait for their turn or until
// their context is done.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *config) {
		c.rateLimit = requestsPerSecond
		c.burst = burst
	}
}

// Response is a CouchDB answer. Body holds the raw JSON, it has been
// validated but not decoded.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage

	method string
	url    string
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Success reports whether the status is 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs JSON requests against one CouchDB instance through a
// single cookie session. It is safe for concurrent use.
type Transport struct {
	url       string
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter // nil if unlimited
}

// Connect creates a transport for the instance at url and, unless cred is
// nil, opens a cookie session with it. A rejected login returns
// ErrUnauthorized and no transport.
func Connect(ctx context.Context, url string, cred *Credentials, opts ...Option) (*Transport, error) {
	cfg := &config{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := sessionClient(cfg)
	if err != nil {
		return nil, err
	}
	t := &Transport{
		url:       strings.TrimRight(url, "/"),
		client:    client,
		userAgent: cfg.userAgent,
	}
	if cfg.rateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), max(cfg.burst, 1))
	}

	if cred == nil {
		return t, nil
	}
	if err := t.login(ctx, cred); err != nil {
		return nil, err
	}
	return t, nil
}

// sessionClient returns the http client of a transport, always with a cookie jar.
func sessionClient(cfg *config) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if cfg.httpClient == nil {
		return &http.Client{Jar: jar, Timeout: cfg.timeout}, nil
	}
	if cfg.httpClient.Jar != nil && cfg.httpClient.Timeout != 0 {
		return cfg.httpClient, nil
	}
	client := *cfg.httpClient
	if client.Jar == nil {
		client.Jar = jar
	}
	if client.Timeout == 0 {
		client.Timeout = cfg.timeout
	}
	return &client, nil
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (t *Transport) login(ctx context.Context, cred *Credentials) error {
	resp, err := t.Post(ctx, t.url+"/_session", loginRequest{Name: cred.user, Password: cred.password})
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		logger.Info("connected to %s as %s", t.url, cred.user)
		return nil
	case http.StatusUnauthorized:
		return newError(ErrUnauthorized, resp)
	default:
		return newError(ErrUnexpectedStatus, resp)
	}
}

// URL returns the base url of the CouchDB instance.
func (t *Transport) URL() string {
	return t.url
}

// Get sends a GET request, options are encoded as query parameters.
func (t *Transport) Get(ctx context.Context, url string, options Options) (*Response, error) {
	return t.Do(ctx, http.MethodGet, url+options.Encode(), nil)
}

// Post sends body as JSON in a POST request.
func (t *Transport) Post(ctx context.Context, url string, body interface{}) (*Response, error) {
	return t.Do(ctx, http.MethodPost, url, body)
}

// Put sends body as JSON in a PUT request. A nil body sends no content.
func (t *Transport) Put(ctx context.Context, url string, body interface{}) (*Response, error) {
	return t.Do(ctx, http.MethodPut, url, body)
}

// Delete sends a DELETE request.
func (t *Transport) Delete(ctx context.Context, url string) (*Response, error) {
	return t.Do(ctx, http.MethodDelete, url, nil)
}

// Head sends a HEAD request, the response has no body.
func (t *Transport) Head(ctx context.Context, url string) (*Response, error) {
	return t.Do(ctx, http.MethodHead, url, nil)
}

// Generic CouchDB request. The status code is not interpreted, a response
// with any status is returned as long as its body is valid JSON.
func (t *Transport) Do(ctx context.Context, method, url string, body interface{}) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: method, URL: url, Err: err}
		}
	}

	// Prepare json request body
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: method, URL: url, Err: err}
		}
		bodyReader = bytes.NewReader(payload)
	}

	// Prepare request
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &TransportError{Op: method, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	// Make request
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()
	logger.Debug("%s %s -> %d", method, url, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: method, URL: url, Err: err}
	}
	respBody = bytes.TrimSpace(respBody)
	if len(respBody) > 0 && !json.Valid(respBody) {
		return nil, &TransportError{Op: method, URL: url, Err: errors.Join(ErrInvalidJSON, errors.New(truncate(respBody)))}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody, method: method, url: url}, nil
}

func truncate(b []byte) string {
	const limit = 128
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
