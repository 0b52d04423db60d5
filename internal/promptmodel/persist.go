package promptmodel

import (
	"encoding/json"
	"fmt"
)

// schemaVersion is bumped whenever the persisted wire shape changes in a way
// that breaks Load against older saved prompts.
const schemaVersion = 1

// wirePrompt is the canonical on-disk representation of a Prompt. Save and
// Load round-trip through it rather than through Prompt's unexported fields
// directly.
type wirePrompt struct {
	SchemaVersion              int           `json:"schema_version"`
	Model                      string        `json:"model"`
	Provider                   ProviderTag   `json:"provider"`
	SystemInstructions         []wireMessage `json:"system_instructions,omitempty"`
	UserMessages               []wireMessage `json:"user_messages"`
	Original                   []wireMessage `json:"original_messages,omitempty"`
	OriginalSystemInstructions []wireMessage `json:"original_system_instructions,omitempty"`
	Settings                   *wireSettings `json:"model_settings,omitempty"`
	ResponseFormat             *wireResponse `json:"response_format,omitempty"`
}

type wireMessage struct {
	Role  Role        `json:"role"`
	Parts []wirePart  `json:"parts"`
}

// wirePart is a tagged union over ContentPart variants: exactly the fields
// relevant to Kind are populated.
type wirePart struct {
	Kind       ContentKind `json:"kind"`
	Text       string      `json:"text,omitempty"`
	URL        string      `json:"url,omitempty"`
	Base64Data string      `json:"base64_data,omitempty"`
	MIMEType   string      `json:"mime_type,omitempty"`
	Data       []byte      `json:"data,omitempty"`
	MediaType  string      `json:"media_type,omitempty"`
}

type wireResponse struct {
	Kind       ResponseFormatKind `json:"kind"`
	SchemaName string             `json:"schema_name,omitempty"`
	Schema     map[string]any     `json:"schema,omitempty"`
	Strict     bool               `json:"strict,omitempty"`
}

// wireSettings mirrors ModelSettings as a tagged union; only the field
// matching the active variant is populated.
type wireSettings struct {
	OpenAI    *OpenAIChatSettings `json:"openai,omitempty"`
	Gemini    *GeminiSettings     `json:"gemini,omitempty"`
	Anthropic *AnthropicSettings  `json:"anthropic,omitempty"`
}

func toWireMessages(msgs []Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		parts := make([]wirePart, len(m.Parts))
		for j, part := range m.Parts {
			parts[j] = toWirePart(part)
		}
		out[i] = wireMessage{Role: m.Role, Parts: parts}
	}
	return out
}

func toWirePart(part ContentPart) wirePart {
	switch v := part.(type) {
	case TextPart:
		return wirePart{Kind: KindText, Text: v.Text}
	case ImagePart:
		return wirePart{Kind: KindImage, URL: v.URL, Base64Data: v.Base64Data, MIMEType: v.MIMEType}
	case AudioPart:
		return wirePart{Kind: KindAudio, URL: v.URL, Base64Data: v.Base64Data, MIMEType: v.MIMEType}
	case DocumentPart:
		return wirePart{Kind: KindDocument, URL: v.URL, MIMEType: v.MIMEType}
	case BinaryPart:
		return wirePart{Kind: KindBinary, Data: v.Data, MediaType: v.MediaType}
	default:
		return wirePart{}
	}
}

func fromWireMessages(msgs []wireMessage) ([]Message, error) {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		parts := make([]ContentPart, len(m.Parts))
		for j, wp := range m.Parts {
			part, err := fromWirePart(wp)
			if err != nil {
				return nil, fmt.Errorf("promptmodel: message %d part %d: %w", i, j, err)
			}
			parts[j] = part
		}
		out[i] = Message{Role: m.Role, Parts: parts}
	}
	return out, nil
}

func fromWirePart(wp wirePart) (ContentPart, error) {
	switch wp.Kind {
	case KindText:
		return TextPart{Text: wp.Text}, nil
	case KindImage:
		return ImagePart{URL: wp.URL, Base64Data: wp.Base64Data, MIMEType: wp.MIMEType}, nil
	case KindAudio:
		return AudioPart{URL: wp.URL, Base64Data: wp.Base64Data, MIMEType: wp.MIMEType}, nil
	case KindDocument:
		return DocumentPart{URL: wp.URL, MIMEType: wp.MIMEType}, nil
	case KindBinary:
		return BinaryPart{Data: wp.Data, MediaType: wp.MediaType}, nil
	default:
		return nil, fmt.Errorf("unknown content part kind %q", wp.Kind)
	}
}

// Save serializes the prompt to its canonical JSON form. Re-loading the
// result with Load and re-saving it produces byte-identical output.
func (p *Prompt) Save() ([]byte, error) {
	w := wirePrompt{
		SchemaVersion:              schemaVersion,
		Model:                      p.model,
		Provider:                   p.provider,
		SystemInstructions:         toWireMessages(p.systemInstructions),
		UserMessages:               toWireMessages(p.userMessages),
		Original:                   toWireMessages(p.original),
		OriginalSystemInstructions: toWireMessages(p.originalSystemInstructions),
		ResponseFormat: &wireResponse{
			Kind:       p.responseFormat.Kind,
			SchemaName: p.responseFormat.SchemaName,
			Schema:     p.responseFormat.Schema,
			Strict:     p.responseFormat.Strict,
		},
	}
	if tag := p.settings.Tag(); tag != "" {
		w.Settings = &wireSettings{
			OpenAI:    p.settings.OpenAI,
			Gemini:    p.settings.Gemini,
			Anthropic: p.settings.Anthropic,
		}
	}
	return json.Marshal(w)
}

// Load reconstructs a Prompt from its canonical JSON form as produced by
// Save. It validates the same construction invariants NewPrompt does.
func Load(data []byte) (*Prompt, error) {
	var w wirePrompt
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("promptmodel: load: %w", err)
	}
	if w.SchemaVersion > schemaVersion {
		return nil, fmt.Errorf("promptmodel: load: schema_version %d is newer than supported %d", w.SchemaVersion, schemaVersion)
	}

	userMsgs, err := fromWireMessages(w.UserMessages)
	if err != nil {
		return nil, err
	}
	sysMsgs, err := fromWireMessages(w.SystemInstructions)
	if err != nil {
		return nil, err
	}
	original := userMsgs
	if len(w.Original) > 0 {
		original, err = fromWireMessages(w.Original)
		if err != nil {
			return nil, err
		}
	}
	originalSystem := sysMsgs
	if len(w.OriginalSystemInstructions) > 0 {
		originalSystem, err = fromWireMessages(w.OriginalSystemInstructions)
		if err != nil {
			return nil, err
		}
	}

	p := &Prompt{
		model:                      w.Model,
		provider:                   w.Provider,
		userMessages:               userMsgs,
		systemInstructions:         sysMsgs,
		original:                   original,
		originalSystemInstructions: originalSystem,
		responseFormat:             TextResponseFormat(),
	}
	if w.ResponseFormat != nil {
		p.responseFormat = ResponseFormat{
			Kind:       w.ResponseFormat.Kind,
			SchemaName: w.ResponseFormat.SchemaName,
			Schema:     w.ResponseFormat.Schema,
			Strict:     w.ResponseFormat.Strict,
		}
	}
	if w.Settings != nil {
		p.settings = ModelSettings{OpenAI: w.Settings.OpenAI, Gemini: w.Settings.Gemini, Anthropic: w.Settings.Anthropic}
	}

	if _, err := ParseProviderTag(string(p.provider)); err != nil {
		return nil, err
	}
	if err := p.settings.validateFor(p.provider); err != nil {
		return nil, err
	}
	return p, nil
}
