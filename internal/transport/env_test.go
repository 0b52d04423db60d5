package transport

import "testing"

func TestEndpointForDefaults(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{"openai", "gpt-4o", "https://api.openai.com/v1/chat/completions"},
		{"gemini", "gemini-2.5-pro", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:generateContent"},
		{"anthropic", "claude-opus-4", "https://api.anthropic.com/v1/messages"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("OPENAI_API_URL", "")
			t.Setenv("GEMINI_API_URL", "")
			t.Setenv("ANTHROPIC_API_URL", "")
			got, err := endpointFor(tt.provider, tt.model)
			if err != nil {
				t.Fatalf("endpointFor() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("endpointFor(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
			}
		})
	}
}

func TestEndpointForVertexRequiresProject(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	_, err := endpointFor("vertex", "gemini-2.5-pro")
	if err == nil {
		t.Fatal("endpointFor(vertex) with no project: want error, got nil")
	}
}

func TestEndpointForVertexComposesFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "europe-west1")
	got, err := endpointFor("vertex", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("endpointFor() error = %v", err)
	}
	want := "https://europe-west1-aiplatform.googleapis.com/v1beta1/projects/my-project/locations/europe-west1/publishers/google/models/gemini-2.5-pro:generateContent"
	if got != want {
		t.Errorf("endpointFor(vertex) = %q, want %q", got, want)
	}
}

func TestEndpointForUnknownProvider(t *testing.T) {
	_, err := endpointFor("not-a-provider", "m")
	if err == nil {
		t.Fatal("endpointFor() with unknown provider: want error, got nil")
	}
}

func TestCredentialsForOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	creds, err := credentialsFor("openai", nil)
	if err != nil {
		t.Fatalf("credentialsFor() error = %v", err)
	}
	if creds.Header != "Authorization" || creds.Value != "Bearer sk-test" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestCredentialsForAnthropic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")
	creds, err := credentialsFor("anthropic", nil)
	if err != nil {
		t.Fatalf("credentialsFor() error = %v", err)
	}
	if creds.Header != "x-api-key" || creds.Value != "ak-test" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestCredentialsForMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := credentialsFor("openai", nil)
	if err == nil {
		t.Fatal("credentialsFor() with no key set: want error, got nil")
	}
}

func TestCredentialsForVertexRequiresTokenSource(t *testing.T) {
	_, err := credentialsFor("vertex", nil)
	if err == nil {
		t.Fatal("credentialsFor(vertex) with no token source: want error, got nil")
	}
}
