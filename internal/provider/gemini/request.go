package gemini

import (
	"encoding/json"

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
	for _, known := range []string{"contents", "systemInstruction", "generationConfig"} {
		delete(raw, known)
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// BuildRequest translates a Prompt into a GenerateContent request: user and
// assistant messages become contents[] with role in {user, model, function};
// system instructions become a separate systemInstruction content; a JSON
// response format sets generationConfig.responseMimeType, and a JSON-schema
// format also sets responseJsonSchema.
func BuildRequest(p *promptmodel.Prompt) (*Request, error) {
	req := &Request{}

	if sys := p.SystemInstructions(); len(sys) > 0 {
		parts := make([]Part, 0)
		for _, m := range sys {
			parts = append(parts, toParts(m)...)
		}
		req.SystemInstruction = &Content{Parts: parts}
	}

	for _, m := range p.UserMessages() {
		req.Contents = append(req.Contents, Content{Role: toGeminiRole(m.Role), Parts: toParts(m)})
	}

	var cfg Settings
	hasCfg := false
	if s := p.Settings().Gemini; s != nil {
		cfg = Settings{
			Temperature:     s.Temperature,
			TopP:            s.TopP,
			TopK:            s.TopK,
			MaxOutputTokens: s.MaxOutputTokens,
			StopSequences:   s.StopSequences,
			CandidateCount:  s.CandidateCount,
		}
		hasCfg = true
	}

	rf := p.ResponseFormat()
	switch rf.Kind {
	case promptmodel.ResponseFormatJSONObject:
		cfg.ResponseMIMEType = "application/json"
		hasCfg = true
	case promptmodel.ResponseFormatJSONSchema:
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJSONSchema = rf.Schema
		hasCfg = true
	}

	if hasCfg {
		req.GenerationConfig = &cfg
	}
	return req, nil
}

func toGeminiRole(r promptmodel.Role) string {
	switch r {
	case promptmodel.RoleAssistant, promptmodel.RoleModel:
		return "model"
	case promptmodel.RoleFunction, promptmodel.RoleTool:
		return "function"
	default:
		return "user"
	}
}

func toParts(m promptmodel.Message) []Part {
	parts := make([]Part, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch v := part.(type) {
		case promptmodel.TextPart:
			parts = append(parts, TextPart(v.Text))
		case promptmodel.ImagePart:
			if v.Base64Data != "" {
				parts = append(parts, BlobPart(v.MIMEType, v.Base64Data))
			} else {
				parts = append(parts, FileDataPart(v.MIMEType, v.URL))
			}
		case promptmodel.AudioPart:
			if v.Base64Data != "" {
				parts = append(parts, BlobPart(v.MIMEType, v.Base64Data))
			} else {
				parts = append(parts, FileDataPart(v.MIMEType, v.URL))
			}
		case promptmodel.DocumentPart:
			parts = append(parts, FileDataPart(v.MIMEType, v.URL))
		}
	}
	return parts
}
