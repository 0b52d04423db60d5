package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name           string
		globalConfig   *OrchestratorConfig
		projectConfig  *OrchestratorConfig
		expectAgents   int
		checkAgent     string
		expectProvider string
		checkModel     string
		expectModel    string
	}{
		{
			name:          "No config files - returns defaults",
			globalConfig:  nil,
			projectConfig: nil,
			expectAgents:  3,
		},
		{
			name: "Global only - adds new agent",
			globalConfig: &OrchestratorConfig{
				Agents: map[string]AgentConfig{
					"css-specialist": {Provider: "gemini", SystemPrompt: "You specialize in CSS styling."},
				},
			},
			expectAgents:   4, // 3 defaults + 1 new
			checkAgent:     "css-specialist",
			expectProvider: "gemini",
		},
		{
			name: "Project only - overrides agent provider",
			projectConfig: &OrchestratorConfig{
				Agents: map[string]AgentConfig{
					"coder": {Provider: "anthropic", SystemPrompt: "You implement features using Claude."},
				},
			},
			expectAgents:   3,
			checkAgent:     "coder",
			expectProvider: "anthropic",
		},
		{
			name: "Project overrides global - project wins",
			globalConfig: &OrchestratorConfig{
				Agents: map[string]AgentConfig{
					"coder": {Provider: "openai", Model: "model-x"},
				},
			},
			projectConfig: &OrchestratorConfig{
				Agents: map[string]AgentConfig{
					"coder": {Provider: "anthropic", Model: "model-y"},
				},
			},
			expectAgents:   3,
			checkAgent:     "coder",
			expectProvider: "anthropic",
			checkModel:     "coder",
			expectModel:    "model-y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				data, err := json.Marshal(tt.globalConfig)
				if err != nil {
					t.Fatalf("marshaling global config: %v", err)
				}
				if err := os.WriteFile(globalPath, data, 0644); err != nil {
					t.Fatalf("writing global config: %v", err)
				}
			}

			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				data, err := json.Marshal(tt.projectConfig)
				if err != nil {
					t.Fatalf("marshaling project config: %v", err)
				}
				if err := os.WriteFile(projectPath, data, 0644); err != nil {
					t.Fatalf("writing project config: %v", err)
				}
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := len(cfg.Agents); got != tt.expectAgents {
				t.Errorf("agents count = %d, want %d", got, tt.expectAgents)
			}

			if tt.checkAgent != "" {
				agent, exists := cfg.Agents[tt.checkAgent]
				if !exists {
					t.Fatalf("expected agent %q not found", tt.checkAgent)
				}
				if tt.expectProvider != "" && agent.Provider != tt.expectProvider {
					t.Errorf("agent %q provider = %q, want %q", tt.checkAgent, agent.Provider, tt.expectProvider)
				}
			}

			if tt.checkModel != "" {
				agent, exists := cfg.Agents[tt.checkModel]
				if !exists {
					t.Fatalf("expected agent %q not found", tt.checkModel)
				}
				if agent.Model != tt.expectModel {
					t.Errorf("agent %q model = %q, want %q", tt.checkModel, agent.Model, tt.expectModel)
				}
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if len(cfg.Agents) != 3 {
		t.Errorf("agents count = %d, want 3", len(cfg.Agents))
	}
	if cfg.Transport.ConcurrencyPerProvider != 8 {
		t.Errorf("ConcurrencyPerProvider = %d, want 8", cfg.Transport.ConcurrencyPerProvider)
	}
}

func TestLoad_ProjectTransportOverridesDefault(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, "project.json")

	projectCfg := &OrchestratorConfig{
		Transport: TransportConfig{ConcurrencyPerProvider: 2, BreakerThreshold: 1, BreakerCooldown: time.Second, DefaultTimeout: 5 * time.Second},
	}
	data, err := json.Marshal(projectCfg)
	if err != nil {
		t.Fatalf("marshaling project config: %v", err)
	}
	if err := os.WriteFile(projectPath, data, 0644); err != nil {
		t.Fatalf("writing project config: %v", err)
	}

	cfg, err := Load("", projectPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport.ConcurrencyPerProvider != 2 {
		t.Errorf("ConcurrencyPerProvider = %d, want 2", cfg.Transport.ConcurrencyPerProvider)
	}
}
