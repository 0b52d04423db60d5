package transport

import (
	"fmt"
	"os"
)

const (
	defaultOpenAIEndpoint    = "https://api.openai.com/v1"
	defaultGeminiEndpoint    = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultVertexAPIVersion  = "v1beta1"
	defaultVertexLocation    = "us-central1"
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1"
	anthropicAPIVersion      = "2023-06-01"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func endpointFor(provider, model string) (string, error) {
	switch provider {
	case "openai":
		return envOrDefault("OPENAI_API_URL", defaultOpenAIEndpoint) + "/chat/completions", nil
	case "gemini":
		base := envOrDefault("GEMINI_API_URL", defaultGeminiEndpoint)
		return fmt.Sprintf("%s/%s:generateContent", base, model), nil
	case "vertex":
		project := os.Getenv("GOOGLE_CLOUD_PROJECT")
		if project == "" {
			return "", &ConfigError{Reason: "GOOGLE_CLOUD_PROJECT is required for the vertex provider"}
		}
		location := envOrDefault("GOOGLE_CLOUD_LOCATION", defaultVertexLocation)
		apiVersion := envOrDefault("VERTEX_API_VERSION", defaultVertexAPIVersion)
		base := fmt.Sprintf("https://%s-aiplatform.googleapis.com/%s/projects/%s/locations/%s/publishers/google/models",
			location, apiVersion, project, location)
		return fmt.Sprintf("%s/%s:generateContent", base, model), nil
	case "google":
		// "google" is an alias for the hosted Gemini API, sharing its
		// endpoint resolution.
		return endpointFor("gemini", model)
	case "anthropic":
		return envOrDefault("ANTHROPIC_API_URL", defaultAnthropicEndpoint) + "/messages", nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
}

func credentialsFor(provider string, vertexToken func() (string, error)) (Credentials, error) {
	switch provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return Credentials{}, &ConfigError{Reason: "OPENAI_API_KEY is not set"}
		}
		return Credentials{Header: "Authorization", Value: "Bearer " + key}, nil
	case "gemini", "google":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return Credentials{}, &ConfigError{Reason: "GEMINI_API_KEY is not set"}
		}
		return Credentials{Header: "x-goog-api-key", Value: key}, nil
	case "vertex":
		if vertexToken == nil {
			return Credentials{}, &ConfigError{Reason: "vertex requires a VertexTokenSource; none was configured"}
		}
		token, err := vertexToken()
		if err != nil {
			return Credentials{}, &ConfigError{Reason: fmt.Sprintf("vertex token source: %v", err)}
		}
		return Credentials{Header: "Authorization", Value: "Bearer " + token}, nil
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return Credentials{}, &ConfigError{Reason: "ANTHROPIC_API_KEY is not set"}
		}
		return Credentials{Header: "x-api-key", Value: key}, nil
	default:
		return Credentials{}, &ConfigError{Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
}
