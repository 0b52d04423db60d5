package promptmodel

import "fmt"

// ProviderTag names a remote LLM vendor. It is a superset covering both
// Google's hosted Gemini API and its Vertex AI variant, which share a wire
// format (GeminiSettings) but resolve to different transport endpoints.
type ProviderTag string

const (
	ProviderOpenAI    ProviderTag = "openai"
	ProviderGemini    ProviderTag = "gemini"
	ProviderVertex    ProviderTag = "vertex"
	ProviderGoogle    ProviderTag = "google"
	ProviderAnthropic ProviderTag = "anthropic"
)

// ParseProviderTag parses a case-insensitive provider name. It is the
// construction-time check spec invariant 1 requires: an unknown provider is
// a construction-time failure, never a silent pass-through.
func ParseProviderTag(s string) (ProviderTag, error) {
	switch ProviderTag(lower(s)) {
	case ProviderOpenAI, ProviderGemini, ProviderVertex, ProviderGoogle, ProviderAnthropic:
		return ProviderTag(lower(s)), nil
	default:
		return "", fmt.Errorf("promptmodel: unknown provider %q", s)
	}
}

// usesGeminiWire reports whether this provider tag is served by the
// Gemini/Vertex GenerateContent wire format and GeminiSettings.
func (p ProviderTag) usesGeminiWire() bool {
	return p == ProviderGemini || p == ProviderVertex || p == ProviderGoogle
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ModelSettings is a closed sum over provider-specific request knobs.
// Exactly one of the typed fields is meaningful, selected by Tag(); the
// others are nil. Prompt construction enforces invariant 1: the ModelSettings
// variant present must match the Prompt's ProviderTag.
type ModelSettings struct {
	OpenAI    *OpenAIChatSettings
	Gemini    *GeminiSettings
	Anthropic *AnthropicSettings
}

// Tag reports which provider family these settings belong to, or "" if the
// ModelSettings is the zero value (no settings supplied).
func (s ModelSettings) Tag() ProviderTag {
	switch {
	case s.OpenAI != nil:
		return ProviderOpenAI
	case s.Gemini != nil:
		return ProviderGemini
	case s.Anthropic != nil:
		return ProviderAnthropic
	default:
		return ""
	}
}

// validateFor enforces invariant 1: model_settings, if present, must
// correspond to the prompt's provider.
func (s ModelSettings) validateFor(p ProviderTag) error {
	tag := s.Tag()
	if tag == "" {
		return nil
	}
	switch {
	case p == ProviderOpenAI && tag == ProviderOpenAI:
		return nil
	case p.usesGeminiWire() && tag == ProviderGemini:
		return nil
	case p == ProviderAnthropic && tag == ProviderAnthropic:
		return nil
	default:
		return fmt.Errorf("promptmodel: model_settings variant %q does not match provider %q", tag, p)
	}
}

// OpenAIChatSettings is the top-level knob set for an OpenAI chat completion
// request. Fields mirror internal/provider/openai.Settings; this copy lives
// in promptmodel to avoid a dependency from promptmodel onto the provider
// packages (the provider packages depend on promptmodel, not vice versa).
type OpenAIChatSettings struct {
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Stop             []string
	Seed             *int64
	ParallelToolCalls *bool
	ToolChoice       *OpenAIToolChoice
	Timeout          int64 // seconds; 0 means unset
	ExtraBody        map[string]any
}

// OpenAIToolChoice is the discriminated union over OpenAI's tool_choice:
// {mode, function, custom, allowed_tools}.
type OpenAIToolChoice struct {
	kind          string
	mode          string // "none" | "auto" | "required"
	functionName  string
	customName    string
	allowedTools  []string
	allowedMode   string // "auto" | "required" for the allowed_tools wrapper
}

func OpenAIToolChoiceMode(mode string) OpenAIToolChoice {
	return OpenAIToolChoice{kind: "mode", mode: mode}
}

func OpenAIToolChoiceFunction(name string) OpenAIToolChoice {
	return OpenAIToolChoice{kind: "function", functionName: name}
}

func OpenAIToolChoiceCustom(name string) OpenAIToolChoice {
	return OpenAIToolChoice{kind: "custom", customName: name}
}

func OpenAIToolChoiceAllowedTools(mode string, tools []string) OpenAIToolChoice {
	return OpenAIToolChoice{kind: "allowed_tools", allowedMode: mode, allowedTools: tools}
}

// Kind reports which OpenAIToolChoice variant this is: "mode", "function",
// "custom", or "allowed_tools".
func (c OpenAIToolChoice) Kind() string         { return c.kind }
func (c OpenAIToolChoice) Mode() string         { return c.mode }
func (c OpenAIToolChoice) FunctionName() string { return c.functionName }
func (c OpenAIToolChoice) CustomName() string   { return c.customName }
func (c OpenAIToolChoice) AllowedMode() string  { return c.allowedMode }
func (c OpenAIToolChoice) AllowedTools() []string { return c.allowedTools }

// GeminiSettings is the top-level knob set shared by Gemini and Vertex
// GenerateContent requests.
type GeminiSettings struct {
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	StopSequences   []string
	CandidateCount  *int
	Timeout         int64
	ExtraBody       map[string]any
}

// AnthropicSettings is the top-level knob set for an Anthropic Messages
// request.
type AnthropicSettings struct {
	Temperature   *float64
	TopP          *float64
	TopK          *int
	MaxTokens     int // required by the Anthropic API; no default
	StopSequences []string
	Timeout       int64
	ExtraBody     map[string]any
}
