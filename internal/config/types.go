package config

import "time"

// AgentConfig defines a role: which provider and model it talks to, and its
// standing system prompt.
type AgentConfig struct {
	Provider     string `json:"provider"`                // "openai", "gemini", "vertex", "anthropic"
	Model        string `json:"model,omitempty"`         // Model override (e.g., "gpt-4o", "claude-opus-4")
	SystemPrompt string `json:"system_prompt,omitempty"` // Role-specific system prompt
}

// TransportConfig tunes internal/transport's HTTP client: how many
// in-flight requests a provider is allowed, when its circuit breaker trips,
// how long it stays open, and the per-request timeout.
type TransportConfig struct {
	ConcurrencyPerProvider int           `json:"concurrency_per_provider,omitempty"`
	BreakerThreshold       int           `json:"breaker_threshold,omitempty"`
	BreakerCooldown        time.Duration `json:"breaker_cooldown,omitempty"`
	DefaultTimeout         time.Duration `json:"default_timeout,omitempty"`
}

// OrchestratorConfig is the top-level configuration.
type OrchestratorConfig struct {
	Agents    map[string]AgentConfig `json:"agents"`
	Transport TransportConfig        `json:"transport"`
}
