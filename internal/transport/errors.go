// Package transport resolves provider endpoints and credentials from the
// environment and executes HTTP requests against them, with a per-provider
// circuit breaker guarding outbound calls.
package transport

import "fmt"

// ConfigError signals a missing credential, an unknown provider, or missing
// Vertex configuration. EndpointFor and CredentialsFor return it when they
// are called, which the Agent does for every request; NewHTTPClient checks
// nothing up front.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("transport: config: %s", e.Reason) }

// TransportError covers connection/TLS/DNS failures below the HTTP layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is the distinct TransportError variant for a call that
// exceeded its deadline.
type TimeoutError struct {
	Duration string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("transport: timeout after %s", e.Duration) }

// ProviderError wraps an HTTP 4xx/5xx response from the vendor. Transient is
// true for 5xx (and for a tripped circuit breaker, which behaves as if the
// upstream were failing) and false for 4xx.
type ProviderError struct {
	Status     int
	Body       []byte
	Transient  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("transport: provider error, status %d", e.Status)
}
