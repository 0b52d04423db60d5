package promptmodel

import "fmt"

// Prompt is the canonical, provider-agnostic unit of work submitted to an
// Agent: a target model/provider pair, the conversation so far, and the
// knobs that govern generation. Prompt values are built through NewPrompt
// and the small typed constructors below; there is no exported field
// assignment path that bypasses validation.
type Prompt struct {
	model               string
	provider            ProviderTag
	systemInstructions  []Message
	userMessages        []Message
	settings            ModelSettings
	responseFormat      ResponseFormat

	// original preserves the as-constructed user messages, untouched by any
	// Bind call, so Reset can restore placeholder text verbatim.
	original []Message

	// originalSystemInstructions preserves the as-constructed system
	// instructions the same way original does for user messages: applyBind
	// rewrites placeholders in both slices, so Reset needs both to restore
	// verbatim.
	originalSystemInstructions []Message

	// lastWarnings holds the placeholders left unresolved by the most
	// recent Bind/BindMut/BindAll call.
	lastWarnings []BindWarning
}

// PromptOption configures a Prompt at construction time.
type PromptOption func(*Prompt) error

// NewPrompt builds a Prompt for model served by provider, applying opts in
// order. Construction fails if provider is not a recognized tag, if any
// option fails, or if the resulting ModelSettings variant does not match
// provider (invariant: provider selects which ModelSettings variant is
// permitted).
func NewPrompt(model string, provider ProviderTag, opts ...PromptOption) (*Prompt, error) {
	if model == "" {
		return nil, fmt.Errorf("promptmodel: model must not be empty")
	}
	if _, err := ParseProviderTag(string(provider)); err != nil {
		return nil, err
	}
	p := &Prompt{
		model:          model,
		provider:       provider,
		responseFormat: TextResponseFormat(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := p.settings.validateFor(p.provider); err != nil {
		return nil, err
	}
	p.original = cloneMessages(p.userMessages)
	p.originalSystemInstructions = cloneMessages(p.systemInstructions)
	return p, nil
}

// FromText is a convenience constructor for the common case: a single user
// turn of plain text, no system instructions.
func FromText(model string, provider ProviderTag, text string, opts ...PromptOption) (*Prompt, error) {
	return NewPrompt(model, provider, append([]PromptOption{WithUserMessages(UserMessage(text))}, opts...)...)
}

// FromTexts builds a Prompt from a sequence of plain-text user turns, in
// order.
func FromTexts(model string, provider ProviderTag, texts []string, opts ...PromptOption) (*Prompt, error) {
	msgs := make([]Message, len(texts))
	for i, t := range texts {
		msgs[i] = UserMessage(t)
	}
	return NewPrompt(model, provider, append([]PromptOption{WithUserMessages(msgs...)}, opts...)...)
}

// FromMessages builds a Prompt from a caller-assembled message sequence,
// for multi-part or multi-role content.
func FromMessages(model string, provider ProviderTag, messages []Message, opts ...PromptOption) (*Prompt, error) {
	return NewPrompt(model, provider, append([]PromptOption{WithUserMessages(messages...)}, opts...)...)
}

// WithUserMessages appends messages to the prompt's user-turn sequence.
func WithUserMessages(messages ...Message) PromptOption {
	return func(p *Prompt) error {
		p.userMessages = append(p.userMessages, cloneMessages(messages)...)
		return nil
	}
}

// WithSystemInstructions appends messages to the prompt's system-instruction
// sequence, kept distinct from user turns since several providers transport
// it out-of-band from the message list.
func WithSystemInstructions(messages ...Message) PromptOption {
	return func(p *Prompt) error {
		p.systemInstructions = append(p.systemInstructions, cloneMessages(messages)...)
		return nil
	}
}

// WithModelSettings attaches provider-specific generation knobs. The variant
// supplied must match the Prompt's provider or construction fails.
func WithModelSettings(settings ModelSettings) PromptOption {
	return func(p *Prompt) error {
		p.settings = settings
		return nil
	}
}

// WithResponseFormat overrides the default unconstrained text response
// format.
func WithResponseFormat(format ResponseFormat) PromptOption {
	return func(p *Prompt) error {
		p.responseFormat = format
		return nil
	}
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.clone()
	}
	return out
}

// Model returns the target model identifier.
func (p *Prompt) Model() string { return p.model }

// Provider returns the target provider tag.
func (p *Prompt) Provider() ProviderTag { return p.provider }

// ModelIdentifier returns the "<provider>:<model>" pair identifying the
// prompt's target.
func (p *Prompt) ModelIdentifier() string { return string(p.provider) + ":" + p.model }

// UserMessages returns a snapshot copy of the current user turns, reflecting
// any prior Bind calls.
func (p *Prompt) UserMessages() []Message { return cloneMessages(p.userMessages) }

// SystemInstructions returns a snapshot copy of the system instructions.
func (p *Prompt) SystemInstructions() []Message { return cloneMessages(p.systemInstructions) }

// Settings returns the provider-specific generation settings.
func (p *Prompt) Settings() ModelSettings { return p.settings }

// ResponseFormat returns the configured response format.
func (p *Prompt) ResponseFormat() ResponseFormat { return p.responseFormat }

// DeepCopy returns an independent Prompt with the same model, provider,
// settings, response format, and current (post-bind) message content.
func (p *Prompt) DeepCopy() *Prompt {
	cp := &Prompt{
		model:                      p.model,
		provider:                   p.provider,
		systemInstructions:         cloneMessages(p.systemInstructions),
		userMessages:               cloneMessages(p.userMessages),
		settings:                   p.settings,
		responseFormat:             p.responseFormat,
		original:                   cloneMessages(p.original),
		originalSystemInstructions: cloneMessages(p.originalSystemInstructions),
	}
	return cp
}
