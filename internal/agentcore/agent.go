package agentcore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/llmorch/internal/promptmodel"
	"github.com/aristath/llmorch/internal/scheduler"
	"github.com/aristath/llmorch/internal/schema"
	"github.com/aristath/llmorch/internal/transport"
)

// Agent executes Prompts against a provider. It is stateless across calls:
// it holds no conversation memory, so repeated calls with the same Prompt
// are idempotent at the application layer.
type Agent struct {
	ID                 string
	Provider           string
	SystemInstructions []promptmodel.Message

	transport transport.Client
	schema    *schema.Resolver
}

// NewAgent builds an Agent backed by client. id and provider identify the
// agent for logging and event attribution; systemInstructions are prepended
// to every Prompt's own system instructions.
func NewAgent(id, provider string, systemInstructions []promptmodel.Message, client transport.Client) *Agent {
	return &Agent{
		ID:                 id,
		Provider:           provider,
		SystemInstructions: systemInstructions,
		transport:          client,
		schema:             schema.NewResolver(),
	}
}

// ExecOption configures a single ExecutePrompt/ExecuteTask call.
type ExecOption func(*execConfig)

type execConfig struct {
	model      string
	outputType any
}

// WithModel overrides the effective model for this call; without it, the
// prompt's own model is used.
func WithModel(model string) ExecOption {
	return func(c *execConfig) { c.model = model }
}

// WithOutputType declares the Go type the response must be projected into.
// When it differs from the prompt's own response format, the effective
// response format is derived from it via internal/schema.
func WithOutputType(v any) ExecOption {
	return func(c *execConfig) { c.outputType = v }
}

// ExecutePrompt runs the agent's seven-step execution pipeline: resolve the
// effective model, merge system instructions, resolve the response format,
// build the provider request, submit it through transport, decode the
// response, and project it into a ChatResponse (or, with WithOutputType,
// into the declared type).
func (a *Agent) ExecutePrompt(ctx context.Context, p *promptmodel.Prompt, opts ...ExecOption) (*ChatResponse, error) {
	cfg := &execConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	effective, err := a.prepare(p, cfg)
	if err != nil {
		return nil, err
	}

	pr, err := buildProviderRequest(effective)
	if err != nil {
		return nil, err
	}

	endpoint, err := a.transport.EndpointFor(pr.provider, effective.Model())
	if err != nil {
		return nil, err
	}
	creds, err := a.transport.CredentialsFor(pr.provider)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set(creds.Header, creds.Value)

	_, body, err := a.transport.Execute(ctx, pr.provider, endpoint, pr.body, headers)
	if err != nil {
		return nil, err
	}

	resp, err := decodeProviderResponse(pr.provider, body)
	if err != nil {
		return nil, err
	}

	if cfg.outputType != nil {
		if err := a.project(resp, cfg.outputType); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// ExecuteTask runs task's Prompt through ExecutePrompt. It does not mutate
// task or update the owning DAG; the caller (internal/workflow) is
// responsible for recording the outcome via DAG.MarkCompleted/MarkFailed.
func (a *Agent) ExecuteTask(ctx context.Context, task *scheduler.Task, opts ...ExecOption) (*ChatResponse, error) {
	if task.Prompt == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("task %q has no prompt", task.ID)}
	}
	return a.ExecutePrompt(ctx, task.Prompt, opts...)
}

// prepare implements steps 1-3: resolve the effective model, merge system
// instructions, and resolve the response format, returning a Prompt copy
// with those effective values applied.
func (a *Agent) prepare(p *promptmodel.Prompt, cfg *execConfig) (*promptmodel.Prompt, error) {
	model := cfg.model
	if model == "" {
		model = p.Model()
	}
	if model == "" {
		return nil, &ValidationError{Reason: "no model resolved: neither the call nor the prompt specified one"}
	}

	merged := append(append([]promptmodel.Message{}, a.SystemInstructions...), p.SystemInstructions()...)

	opts := []promptmodel.PromptOption{
		promptmodel.WithUserMessages(p.UserMessages()...),
		promptmodel.WithSystemInstructions(merged...),
		promptmodel.WithModelSettings(p.Settings()),
	}

	responseFormat := p.ResponseFormat()
	if cfg.outputType != nil {
		resolved, err := a.schema.Describe(outputTypeName(cfg.outputType), cfg.outputType)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		responseFormat = promptmodel.JSONSchemaResponseFormat(resolved.Name, resolved.Schema, resolved.Strict)
	}
	opts = append(opts, promptmodel.WithResponseFormat(responseFormat))

	return promptmodel.NewPrompt(model, p.Provider(), opts...)
}

// project implements step 7 for a declared output type: extract the first
// textual output, parse it as JSON, and validate it against outputType's
// schema before unmarshaling into it.
func (a *Agent) project(resp *ChatResponse, outputType any) error {
	resolved, err := a.schema.Describe(outputTypeName(outputType), outputType)
	if err != nil {
		return &ProjectionError{Err: err}
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(resp.Text()), &decoded); err != nil {
		return &ProjectionError{Err: fmt.Errorf("response text is not valid JSON: %w", err)}
	}
	if err := schema.Validate(resolved.Schema, decoded); err != nil {
		return &ProjectionError{Err: err}
	}
	if err := json.Unmarshal([]byte(resp.Text()), outputType); err != nil {
		return &ProjectionError{Err: err}
	}
	return nil
}

func outputTypeName(v any) string {
	return fmt.Sprintf("%T", v)
}
