package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// VertexTokenSource acquires an OAuth2 access token for a Vertex AI request.
// Application Default Credentials are explicitly out of scope for this
// module (no vendored GCP SDK); the caller supplies how a token is obtained.
type VertexTokenSource func(ctx context.Context) (string, error)

// HTTPClient is the default transport.Client: it resolves endpoints and
// credentials from the environment per spec, and executes requests over
// net/http with a per-provider circuit breaker (see breaker.go).
type HTTPClient struct {
	httpClient *http.Client
	breakers   *breakerRegistry
	vertexToken VertexTokenSource
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithVertexTokenSource installs the function used to acquire a Vertex AI
// bearer token. Without one, any vertex request fails with a ConfigError.
func WithVertexTokenSource(src VertexTokenSource) HTTPClientOption {
	return func(c *HTTPClient) { c.vertexToken = src }
}

// WithHTTPClient overrides the underlying *http.Client (for custom
// transports, proxies, or test doubles).
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithTimeout overrides the default per-request timeout (60s).
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithBreakerTuning sets the consecutive-failure threshold and cooldown
// window used by every provider's circuit breaker. Zero values fall back
// to the teacher's original defaults (5 failures, 30s cooldown).
func WithBreakerTuning(threshold uint32, cooldown time.Duration) HTTPClientOption {
	return func(c *HTTPClient) { c.breakers = newBreakerRegistry(threshold, cooldown) }
}

// NewHTTPClient returns a ready-to-use HTTPClient.
func NewHTTPClient(opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		breakers:   newBreakerRegistry(0, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EndpointFor resolves the request URL for a (provider, model) pair.
func (c *HTTPClient) EndpointFor(provider, model string) (string, error) {
	return endpointFor(provider, model)
}

// CredentialsFor resolves the auth header for a provider.
func (c *HTTPClient) CredentialsFor(provider string) (Credentials, error) {
	var tokenFn func() (string, error)
	if c.vertexToken != nil {
		tokenFn = func() (string, error) { return c.vertexToken(context.Background()) }
	}
	return credentialsFor(provider, tokenFn)
}

// Execute submits req to endpoint through provider's circuit breaker. A
// tripped breaker returns a ProviderError{Transient: true} without making
// the call, matching the contract that 5xx (and a suspected-down upstream)
// is signalled as retryable while 4xx is not.
func (c *HTTPClient) Execute(ctx context.Context, provider, endpoint string, req []byte, headers http.Header) (int, []byte, error) {
	breaker := c.breakers.get(provider)

	result, err := breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, provider, endpoint, req, headers)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, nil, &ProviderError{Transient: true}
		}
		var pe *ProviderError
		if errors.As(err, &pe) {
			return pe.Status, pe.Body, pe
		}
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			return 0, nil, timeoutErr
		}
		return 0, nil, &TransportError{Err: err}
	}

	exec := result.(execResult)
	return exec.status, exec.body, nil
}

type execResult struct {
	status int
	body   []byte
}

func (c *HTTPClient) doRequest(ctx context.Context, provider, endpoint string, reqBody []byte, headers http.Header) (execResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return execResult{}, err
	}
	httpReq.Header = headers.Clone()
	httpReq.Header.Set("Content-Type", "application/json")
	if provider == "anthropic" {
		httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	}
	if key, ok := requestIdempotencyKey(reqBody); ok {
		httpReq.Header.Set(IdempotencyHeader, key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return execResult{}, &TimeoutError{Duration: "context deadline"}
		}
		return execResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return execResult{}, err
	}

	if resp.StatusCode >= 400 {
		return execResult{}, &ProviderError{
			Status:    resp.StatusCode,
			Body:      body,
			Transient: resp.StatusCode >= 500,
		}
	}
	return execResult{status: resp.StatusCode, body: body}, nil
}
