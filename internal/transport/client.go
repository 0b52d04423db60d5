package transport

import (
	"context"
	"net/http"
)

// Credentials carries whatever an HTTP request needs to authenticate
// against a provider: a header name and a value to set it to.
type Credentials struct {
	Header string
	Value  string
}

// Client is the capability the Agent depends on: resolve an endpoint,
// resolve credentials, and execute a request against a previously resolved
// endpoint. Implementations decide how endpoints/credentials are sourced
// (HTTPClient reads the environment). provider keys the per-provider circuit
// breaker and concurrency bound; it is passed alongside endpoint rather than
// re-derived from it so Execute never has to parse a URL back into a tag.
type Client interface {
	EndpointFor(provider, model string) (string, error)
	CredentialsFor(provider string) (Credentials, error)
	Execute(ctx context.Context, provider, endpoint string, req []byte, headers http.Header) (status int, body []byte, err error)
}
