package transport

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// breakerRegistry holds one circuit breaker per provider tag, created
// lazily on first use. threshold/cooldown come from
// internal/config.TransportConfig so an operator can tune trip sensitivity
// per deployment instead of living with the teacher's hardcoded constants.
type breakerRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	threshold uint32
	cooldown  time.Duration
}

func newBreakerRegistry(threshold uint32, cooldown time.Duration) *breakerRegistry {
	if threshold == 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breakerRegistry{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		threshold: threshold,
		cooldown:  cooldown,
	}
}

func (r *breakerRegistry) get(provider string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[provider]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     r.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("transport: circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var pe *ProviderError
			if errors.As(err, &pe) {
				// A terminal 4xx is the caller's fault, not the
				// provider's; it should not count against the breaker.
				return !pe.Transient
			}
			return false
		},
	})

	r.breakers[provider] = cb
	return cb
}
