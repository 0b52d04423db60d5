package anthropic

import "encoding/json"

// Response is the Messages API response body.
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`

	Extra map[string]json.RawMessage `json:"-"`
}

// StopReason is a closed enum with an Unknown escape variant.
type StopReason struct {
	value   string
	unknown bool
}

const (
	stopEndTurn      = "end_turn"
	stopMaxTokens     = "max_tokens"
	stopStopSequence = "stop_sequence"
	stopToolUse      = "tool_use"
	stopPauseTurn    = "pause_turn"
	stopRefusal      = "refusal"
)

func (s StopReason) String() string  { return s.value }
func (s StopReason) IsUnknown() bool { return s.unknown }

func (s StopReason) MarshalJSON() ([]byte, error) { return json.Marshal(s.value) }

func (s *StopReason) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	s.value = str
	switch str {
	case stopEndTurn, stopMaxTokens, stopStopSequence, stopToolUse, stopPauseTurn, stopRefusal:
		s.unknown = false
	default:
		s.unknown = true
	}
	return nil
}

type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

type responseAlias Response

func (r Response) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(responseAlias(r))
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

func (r *Response) UnmarshalJSON(data []byte) error {
	var alias responseAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = Response(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{"id", "model", "role", "content", "stop_reason", "usage", "type"} {
		delete(raw, known)
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// DecodeResponse parses a Messages API response body.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
