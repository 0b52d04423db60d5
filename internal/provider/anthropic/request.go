package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/aristath/llmorch/internal/promptmodel"
)

type requestAlias Request

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
		"model", "system", "messages", "temperature", "top_p", "top_k",
		"max_tokens", "stop_sequences", "tools", "tool_choice",
	} {
		delete(raw, known)
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// structuredOutputToolName is the synthetic tool Anthropic is forced to call
// when a JSON schema response format is requested: Anthropic has no native
// response_format field, so strict JSON is obtained by defining a tool whose
// input_schema is the target schema and forcing tool_choice to it.
const structuredOutputToolName = "emit_structured_output"

// BuildRequest translates a Prompt into an Anthropic Messages request:
// user/assistant messages become messages[], system instructions concatenate
// into the top-level system string, and a JSON-schema response format is
// encoded as a forced synthetic tool call. A JSON-object response format
// adds nothing to the request.
func BuildRequest(p *promptmodel.Prompt) (*Request, error) {
	req := &Request{Model: p.Model()}

	if sys := p.SystemInstructions(); len(sys) > 0 {
		parts := make([]string, 0, len(sys))
		for _, m := range sys {
			parts = append(parts, m.Text())
		}
		req.System = strings.Join(parts, "\n\n")
	}

	for _, m := range p.UserMessages() {
		req.Messages = append(req.Messages, Message{Role: toAnthropicRole(m.Role), Content: toBlocks(m)})
	}

	if s := p.Settings().Anthropic; s != nil {
		req.Settings = Settings{
			Temperature:   s.Temperature,
			TopP:          s.TopP,
			TopK:          s.TopK,
			MaxTokens:     s.MaxTokens,
			StopSequences: s.StopSequences,
		}
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 4096
	}

	rf := p.ResponseFormat()
	if rf.Kind == promptmodel.ResponseFormatJSONSchema {
		req.Tools = []Tool{{
			Name:        structuredOutputToolName,
			Description: "Emit the final answer as structured JSON matching the given schema.",
			InputSchema: rf.Schema,
		}}
		req.ToolChoice = ToolChoiceNamed(structuredOutputToolName)
	}

	return req, nil
}

func toAnthropicRole(r promptmodel.Role) string {
	if r == promptmodel.RoleAssistant || r == promptmodel.RoleModel {
		return "assistant"
	}
	return "user"
}

func toBlocks(m promptmodel.Message) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch v := part.(type) {
		case promptmodel.TextPart:
			blocks = append(blocks, TextBlock(v.Text))
		case promptmodel.ImagePart:
			if v.Base64Data != "" {
				blocks = append(blocks, ImageBlockBase64(v.MIMEType, v.Base64Data))
			} else {
				blocks = append(blocks, ImageBlockURL(v.URL))
			}
		case promptmodel.DocumentPart:
			blocks = append(blocks, DocumentBlockURL(v.URL))
		}
	}
	return blocks
}
