package agentcore

import (
	"fmt"

	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/provider/anthropic"
	"github.com/aristath/llmorch/internal/provider/gemini"
	"github.com/aristath/llmorch/internal/provider/openai"
)

// providerRequest is the result of dispatching a Prompt to its provider's
// BuildRequest: the serialized request body plus the provider tag used to
// resolve the transport endpoint and circuit breaker.
type providerRequest struct {
	provider string
	body     []byte
}

// buildProviderRequest materializes the provider-specific request for p and
// serializes it to canonical JSON. It lives in agentcore rather than as a
// Prompt method because internal/provider/* already imports promptmodel for
// BuildRequest(*promptmodel.Prompt); a reverse Prompt.AsProviderRequest
// would close an import cycle (see SPEC_FULL.md §13.1).
func buildProviderRequest(p *promptmodel.Prompt) (*providerRequest, error) {
	switch p.Provider() {
	case promptmodel.ProviderOpenAI:
		req, err := openai.BuildRequest(p)
		if err != nil {
			return nil, err
		}
		body, err := marshalCanonical(req)
		return &providerRequest{provider: "openai", body: body}, err
	case promptmodel.ProviderGemini, promptmodel.ProviderVertex, promptmodel.ProviderGoogle:
		req, err := gemini.BuildRequest(p)
		if err != nil {
			return nil, err
		}
		body, err := marshalCanonical(req)
		return &providerRequest{provider: string(p.Provider()), body: body}, err
	case promptmodel.ProviderAnthropic:
		req, err := anthropic.BuildRequest(p)
		if err != nil {
			return nil, err
		}
		body, err := marshalCanonical(req)
		return &providerRequest{provider: "anthropic", body: body}, err
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported provider %q", p.Provider())}
	}
}

func decodeProviderResponse(provider string, body []byte) (*ChatResponse, error) {
	switch provider {
	case "openai":
		resp, err := openai.DecodeResponse(body)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		return newOpenAIChatResponse(resp), nil
	case "gemini", "vertex", "google":
		resp, err := gemini.DecodeResponse(body)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		return newGeminiChatResponse(resp), nil
	case "anthropic":
		resp, err := anthropic.DecodeResponse(body)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		return newAnthropicChatResponse(resp), nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported provider %q", provider)}
	}
}
