package agentcore

import (
	"github.com/aristath/llmorch/internal/provider/anthropic"
	"github.com/aristath/llmorch/internal/provider/gemini"
	"github.com/aristath/llmorch/internal/provider/openai"
)

// ToolCall is the provider-agnostic projection of a requested tool
// invocation: a name and its JSON-encoded arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatResponse is the unified accessor over a decoded provider response,
// translating spec.md §4.E step 7's ".to_py()-style accessors" into
// idiomatic Go methods instead of a dynamic dict projection.
type ChatResponse struct {
	text         string
	toolCalls    []ToolCall
	finishReason string
	raw          any
}

// Text returns the first textual content of the response's primary choice
// or candidate.
func (r *ChatResponse) Text() string { return r.text }

// ToolCalls returns any tool invocations the model requested.
func (r *ChatResponse) ToolCalls() []ToolCall { return r.toolCalls }

// FinishReason returns the provider's finish/stop reason as a string (the
// provider package's own closed enum already normalizes unknown values).
func (r *ChatResponse) FinishReason() string { return r.finishReason }

// Raw returns the fully decoded provider response (one of *openai.Response,
// *gemini.Response, *anthropic.Response) for callers that need fields
// ChatResponse does not project.
func (r *ChatResponse) Raw() any { return r.raw }

func newOpenAIChatResponse(resp *openai.Response) *ChatResponse {
	cr := &ChatResponse{raw: resp}
	if len(resp.Choices) == 0 {
		return cr
	}
	choice := resp.Choices[0]
	cr.text = choice.Message.Content
	cr.finishReason = choice.FinishReason.String()
	for _, tc := range choice.Message.ToolCalls {
		cr.toolCalls = append(cr.toolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return cr
}

func newGeminiChatResponse(resp *gemini.Response) *ChatResponse {
	cr := &ChatResponse{raw: resp}
	if len(resp.Candidates) == 0 {
		return cr
	}
	candidate := resp.Candidates[0]
	cr.finishReason = candidate.FinishReason.String()
	for _, part := range candidate.Content.Parts {
		if part.Kind() == "text" {
			cr.text += part.Text()
		}
		if part.Kind() == "function_call" {
			cr.toolCalls = append(cr.toolCalls, ToolCall{Name: part.FunctionCallName(), Arguments: part.FunctionCallArgsJSON()})
		}
	}
	return cr
}

func newAnthropicChatResponse(resp *anthropic.Response) *ChatResponse {
	cr := &ChatResponse{raw: resp, finishReason: resp.StopReason.String()}
	for _, block := range resp.Content {
		if block.Kind() == "text" {
			cr.text += block.Text()
		}
		if block.Kind() == "tool_use" {
			cr.toolCalls = append(cr.toolCalls, ToolCall{ID: block.ToolUseID(), Name: block.ToolName(), Arguments: block.ToolInputJSON()})
		}
	}
	return cr
}
