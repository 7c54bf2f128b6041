package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

const (
	// acceptGitHubJSON is the media type of the GitHub REST API.
	acceptGitHubJSON = "application/vnd.github+json"
	// acceptBinary is sent when downloading release assets.
	acceptBinary = "application/octet-stream"
	// maxDocumentSize bounds documents read fully into memory.
	maxDocumentSize = 8 << 20
)

// Client talks to the release host.
type Client struct {
	// httpClient executes requests.
	httpClient *http.Client
	// timeout bounds a whole document fetch.
	timeout time.Duration
	// retries is the number of extra attempts after a transient failure.
	retries int
	// retryBackoff is the delay before the first retry.
	retryBackoff time.Duration
	// userAgent identifies the program to the release host.
	userAgent string
	// token is an optional bearer token for the release API.
	token string
	// checksumAsset is the name of the checksum manifest asset.
	checksumAsset string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds document fetches and download connection setup.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetries enables retries of transport errors and 5xx responses.
func WithRetries(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = max(retries, 0)
		c.retryBackoff = backoff
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithToken sends "Authorization: Bearer <token>" to the release API.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithChecksumAsset overrides the checksum manifest asset name.
func WithChecksumAsset(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.checksumAsset = name
		}
	}
}

// NewClient creates a client with defaults suitable for the public release host.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:       config.DefaultTimeout,
		userAgent:     version.BinaryBaseName + "/" + version.Short(),
		checksumAsset: config.DefaultChecksumAsset,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout)
	}

	return c
}

// NewClientFromConfig creates a client from the update settings.
func NewClientFromConfig(settings *config.UpdateConfig, httpClient *http.Client) *Client {
	return NewClient(
		WithHTTPClient(httpClient),
		WithTimeout(settings.Timeout),
		WithRetries(settings.Retries, settings.RetryBackoff),
		WithToken(settings.GitHubToken),
		WithChecksumAsset(settings.ChecksumAsset),
	)
}

// newHTTPClient bounds connection setup and response headers, but not the body,
// so large downloads are limited only by the context.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Standard library default.
	transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{Transport: transport}
}

// get issues a GET request and returns a 200 response.
// Transport errors and 5xx responses are retried before any body is consumed.
func (c *Client) get(ctx context.Context, url, accept string, withToken bool) (*http.Response, error) {
	backoff := c.retryBackoff

	for attempt := 0; ; attempt++ {
		response, err := c.do(ctx, url, accept, withToken)
		if err == nil {
			return response, nil
		}

		if attempt >= c.retries || !isRetryable(ctx, err) {
			return nil, err
		}

		logger.WarnKV(ctx, "Request failed, retrying",
			"url", url, "attempt", attempt+1, "backoff", backoff, "error", err)

		if err = sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}

		backoff *= 2
	}
}

// statusError carries the HTTP status of a failed request.
type statusError struct {
	// code is the HTTP status code.
	code int
	// status is the HTTP status line.
	status string
}

func (e *statusError) Error() string {
	return e.status
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, url, accept string, withToken bool) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", ErrNetwork, errBuildRequest, url, err)
	}

	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set("Accept", accept)

	if withToken && c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, err)
	}

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxDocumentSize))
		_ = response.Body.Close()

		return nil, fmt.Errorf("%w: GET %s: %w: %w",
			ErrNetwork, url, errBadHTTPStatus, &statusError{code: response.StatusCode, status: response.Status})
	}

	return response, nil
}

// fetchDocument reads a whole document within the client timeout.
func (c *Client) fetchDocument(ctx context.Context, url, accept string, withToken bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.get(ctx, url, accept, withToken)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(response.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrNetwork, url, err)
	}

	return data, nil
}

// isRetryable reports whether a failed attempt may be repeated.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, errBuildRequest) {
		return false
	}

	var status *statusError
	if errors.As(err, &status) {
		return status.code >= http.StatusInternalServerError
	}

	return errors.Is(err, ErrNetwork)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
