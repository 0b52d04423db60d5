package openai

import (
	"encoding/json"

	"github.com/aristath/llmorch/internal/promptmodel"
)

// requestAlias has Request's shape minus the custom (Un)MarshalJSON, so
// MarshalJSON/UnmarshalJSON below can delegate to the default encoding
// without recursing into themselves.
type requestAlias Request

// MarshalJSON emits the known fields plus any Extra top-level fields that
// were preserved on decode (or set directly by a caller), without allowing a
// known field's zero value to shadow an Extra entry of the same name.
func (r Request) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(requestAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, present := merged[k]; !present {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields and pours every remaining top-level
// key into Extra.
func (r *Request) UnmarshalJSON(data []byte) error {
	var alias requestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = Request(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{
		"model", "messages", "response_format", "temperature", "top_p", "max_tokens",
		"presence_penalty", "frequency_penalty", "stop", "seed", "parallel_tool_calls", "tool_choice",
	} {
		delete(raw, known)
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// BuildRequest translates a provider-agnostic Prompt into an OpenAI Chat
// Completions request body (spec.md §4.B as_provider_request, OpenAI case):
// system instructions become leading role:"system" messages, a JSON-schema
// response format becomes response_format:{type:"json_schema",...}, and a
// JSON-object response format becomes response_format:{type:"json_object"}.
func BuildRequest(p *promptmodel.Prompt) (*Request, error) {
	req := &Request{Model: p.Model()}

	for _, m := range p.SystemInstructions() {
		req.Messages = append(req.Messages, Message{Role: "system", Content: toContentParts(m)})
	}
	for _, m := range p.UserMessages() {
		req.Messages = append(req.Messages, Message{Role: string(m.Role), Content: toContentParts(m)})
	}

	if s := p.Settings().OpenAI; s != nil {
		req.Settings = Settings{
			Temperature:       s.Temperature,
			TopP:              s.TopP,
			MaxTokens:         s.MaxTokens,
			PresencePenalty:   s.PresencePenalty,
			FrequencyPenalty:  s.FrequencyPenalty,
			Stop:              s.Stop,
			Seed:              s.Seed,
			ParallelToolCalls: s.ParallelToolCalls,
		}
		if s.ToolChoice != nil {
			req.Settings.ToolChoice = toWireToolChoice(*s.ToolChoice)
		}
	}

	rf := p.ResponseFormat()
	switch rf.Kind {
	case promptmodel.ResponseFormatJSONObject:
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	case promptmodel.ResponseFormatJSONSchema:
		req.ResponseFormat = &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchemaSpec{
				Name:   rf.SchemaName,
				Schema: rf.Schema,
				Strict: rf.Strict,
			},
		}
	}

	return req, nil
}

func toContentParts(m promptmodel.Message) []ContentPart {
	parts := make([]ContentPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch v := part.(type) {
		case promptmodel.TextPart:
			parts = append(parts, TextContentPart(v.Text))
		case promptmodel.ImagePart:
			url := v.URL
			if url == "" && v.Base64Data != "" {
				url = "data:" + v.MIMEType + ";base64," + v.Base64Data
			}
			parts = append(parts, ImageURLContentPart(url, ""))
		case promptmodel.AudioPart:
			parts = append(parts, InputAudioContentPart(v.Base64Data, audioFormatFromMIME(v.MIMEType)))
		}
	}
	return parts
}

func audioFormatFromMIME(mime string) string {
	switch mime {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav":
		return "wav"
	default:
		return mime
	}
}

func toWireToolChoice(tc promptmodel.OpenAIToolChoice) *ToolChoice {
	switch tc.Kind() {
	case "mode":
		return ToolChoiceMode(tc.Mode())
	case "function":
		return ToolChoiceFunction(tc.FunctionName())
	case "custom":
		return ToolChoiceCustom(tc.CustomName())
	case "allowed_tools":
		return ToolChoiceAllowedTools(tc.AllowedMode(), tc.AllowedTools())
	default:
		return nil
	}
}
