package config

import "time"

// DefaultConfig returns the default configuration: one agent per review
// role on OpenAI, and transport tuning matching spec.md §5's defaults
// (bounded per-provider concurrency of 8).
func DefaultConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		Agents: map[string]AgentConfig{
			"coder": {
				Provider:     "openai",
				SystemPrompt: "You implement features and write production code.",
			},
			"reviewer": {
				Provider:     "openai",
				SystemPrompt: "You review code for correctness, style, and best practices.",
			},
			"tester": {
				Provider:     "openai",
				SystemPrompt: "You write comprehensive tests and validate functionality.",
			},
		},
		Transport: TransportConfig{
			ConcurrencyPerProvider: 8,
			BreakerThreshold:       5,
			BreakerCooldown:        30 * time.Second,
			DefaultTimeout:         60 * time.Second,
		},
	}
}
