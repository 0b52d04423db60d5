// Package anthropic implements the Anthropic Messages API wire format.
package anthropic

import "encoding/json"

// Settings holds the top-level generation knobs carried directly on the
// request body.
type Settings struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	MaxTokens     int      `json:"max_tokens"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// Request is the Messages API request body.
type Request struct {
	Model    string    `json:"model"`
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Settings
	Tools      []Tool      `json:"tools,omitempty"`
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Message is one entry in the "messages" array.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Tool is a synthetic tool definition, used by BuildRequest to force
// structured JSON output via tool_choice.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoice selects how Anthropic picks among available tools:
// {type: "auto"|"any"|"none"} or {type: "tool", name}.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func ToolChoiceAuto() *ToolChoice          { return &ToolChoice{Type: "auto"} }
func ToolChoiceAny() *ToolChoice           { return &ToolChoice{Type: "any"} }
func ToolChoiceNone() *ToolChoice          { return &ToolChoice{Type: "none"} }
func ToolChoiceNamed(name string) *ToolChoice { return &ToolChoice{Type: "tool", Name: name} }

// ContentBlock is the tagged union over Anthropic's content block variants.
type ContentBlock struct {
	kind        string
	text        string
	sourceType  string // "base64" | "url"
	mediaType   string
	data        string
	url         string
	toolUseID   string
	toolName    string
	toolInput   map[string]any
	toolResult  string
	isError     bool
}

func TextBlock(text string) ContentBlock { return ContentBlock{kind: "text", text: text} }

func ImageBlockBase64(mediaType, data string) ContentBlock {
	return ContentBlock{kind: "image", sourceType: "base64", mediaType: mediaType, data: data}
}

func ImageBlockURL(url string) ContentBlock {
	return ContentBlock{kind: "image", sourceType: "url", url: url}
}

func DocumentBlockURL(url string) ContentBlock {
	return ContentBlock{kind: "document", sourceType: "url", url: url}
}

func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{kind: "tool_use", toolUseID: id, toolName: name, toolInput: input}
}

func ToolResultBlock(toolUseID, result string, isError bool) ContentBlock {
	return ContentBlock{kind: "tool_result", toolUseID: toolUseID, toolResult: result, isError: isError}
}

func (c ContentBlock) Kind() string { return c.kind }

// Text returns the text variant's content; it is empty for other kinds.
func (c ContentBlock) Text() string { return c.text }

// ToolUseID returns the tool_use/tool_result variant's tool_use id.
func (c ContentBlock) ToolUseID() string { return c.toolUseID }

// ToolName returns the tool_use variant's tool name.
func (c ContentBlock) ToolName() string { return c.toolName }

// ToolInputJSON JSON-encodes the tool_use variant's input.
func (c ContentBlock) ToolInputJSON() string {
	data, err := json.Marshal(c.toolInput)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type wireBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Source *struct {
		Type      string `json:"type"`
		MediaType string `json:"media_type,omitempty"`
		Data      string `json:"data,omitempty"`
		URL       string `json:"url,omitempty"`
	} `json:"source,omitempty"`
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
	ToolUseID string       `json:"tool_use_id,omitempty"`
	Content string         `json:"content,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
}

func (c ContentBlock) MarshalJSON() ([]byte, error) {
	w := wireBlock{Type: c.kind}
	switch c.kind {
	case "text":
		w.Text = c.text
	case "image", "document":
		src := &struct {
			Type      string `json:"type"`
			MediaType string `json:"media_type,omitempty"`
			Data      string `json:"data,omitempty"`
			URL       string `json:"url,omitempty"`
		}{Type: c.sourceType, MediaType: c.mediaType, Data: c.data, URL: c.url}
		w.Source = src
	case "tool_use":
		w.ID, w.Name, w.Input = c.toolUseID, c.toolName, c.toolInput
	case "tool_result":
		w.ToolUseID, w.Content, w.IsError = c.toolUseID, c.toolResult, c.isError
	}
	return json.Marshal(w)
}

func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.kind = w.Type
	switch w.Type {
	case "text":
		c.text = w.Text
	case "image", "document":
		if w.Source != nil {
			c.sourceType, c.mediaType, c.data, c.url = w.Source.Type, w.Source.MediaType, w.Source.Data, w.Source.URL
		}
	case "tool_use":
		c.toolUseID, c.toolName, c.toolInput = w.ID, w.Name, w.Input
	case "tool_result":
		c.toolUseID, c.toolResult, c.isError = w.ToolUseID, w.Content, w.IsError
	default:
		c.kind = "unknown:" + w.Type
	}
	return nil
}
