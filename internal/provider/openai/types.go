// Package openai implements the OpenAI Chat Completions wire format: the
// request body the API expects and the response body it returns, translated
// from and into internal/promptmodel's provider-agnostic types.
package openai

import "encoding/json"

// Settings holds the top-level generation knobs carried directly on the
// request body (OpenAI has no separate "settings" object; these fields sit
// alongside "model" and "messages").
type Settings struct {
	Temperature       *float64    `json:"temperature,omitempty"`
	TopP              *float64    `json:"top_p,omitempty"`
	MaxTokens         *int        `json:"max_tokens,omitempty"`
	PresencePenalty   *float64    `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64    `json:"frequency_penalty,omitempty"`
	Stop              []string    `json:"stop,omitempty"`
	Seed              *int64      `json:"seed,omitempty"`
	ParallelToolCalls *bool       `json:"parallel_tool_calls,omitempty"`
	ToolChoice        *ToolChoice `json:"tool_choice,omitempty"`
}

// Request is the Chat Completions request body.
type Request struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Settings

	Extra map[string]json.RawMessage `json:"-"`
}

// Message is one entry in the chat completions "messages" array.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// MarshalJSON emits content as a bare string for the common single-text-part
// case (OpenAI's documented simple-text shape), falling back to the
// array-of-parts form for multi-part or non-text content.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Content) == 1 && m.Content[0].kind == "text" {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: m.Role, Content: m.Content[0].text})
	}
	type alias Message
	return json.Marshal(alias(m))
}

// UnmarshalJSON accepts content as either a bare string or an array of
// content parts, mirroring what MarshalJSON produces.
func (m *Message) UnmarshalJSON(data []byte) error {
	var probe struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	m.Role = probe.Role
	if len(probe.Content) == 0 {
		m.Content = nil
		return nil
	}
	var asString string
	if err := json.Unmarshal(probe.Content, &asString); err == nil {
		m.Content = []ContentPart{TextContentPart(asString)}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(probe.Content, &parts); err != nil {
		return err
	}
	m.Content = parts
	return nil
}

// ContentPart is the tagged union over an OpenAI message content part:
// {type: "text"|"image_url"|"input_audio"}.
type ContentPart struct {
	kind      string
	text      string
	imageURL  string
	imageDetail string
	audioData string
	audioFmt  string
}

func TextContentPart(text string) ContentPart {
	return ContentPart{kind: "text", text: text}
}

func ImageURLContentPart(url, detail string) ContentPart {
	return ContentPart{kind: "image_url", imageURL: url, imageDetail: detail}
}

func InputAudioContentPart(base64Data, format string) ContentPart {
	return ContentPart{kind: "input_audio", audioData: base64Data, audioFmt: format}
}

func (c ContentPart) Kind() string { return c.kind }

type wireContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ImageURL  *struct {
		URL    string `json:"url"`
		Detail string `json:"detail,omitempty"`
	} `json:"image_url,omitempty"`
	InputAudio *struct {
		Data   string `json:"data"`
		Format string `json:"format"`
	} `json:"input_audio,omitempty"`
}

func (c ContentPart) MarshalJSON() ([]byte, error) {
	w := wireContentPart{Type: c.kind}
	switch c.kind {
	case "text":
		w.Text = c.text
	case "image_url":
		w.ImageURL = &struct {
			URL    string `json:"url"`
			Detail string `json:"detail,omitempty"`
		}{URL: c.imageURL, Detail: c.imageDetail}
	case "input_audio":
		w.InputAudio = &struct {
			Data   string `json:"data"`
			Format string `json:"format"`
		}{Data: c.audioData, Format: c.audioFmt}
	}
	return json.Marshal(w)
}

func (c *ContentPart) UnmarshalJSON(data []byte) error {
	var w wireContentPart
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.kind = w.Type
	switch w.Type {
	case "text":
		c.text = w.Text
	case "image_url":
		if w.ImageURL != nil {
			c.imageURL, c.imageDetail = w.ImageURL.URL, w.ImageURL.Detail
		}
	case "input_audio":
		if w.InputAudio != nil {
			c.audioData, c.audioFmt = w.InputAudio.Data, w.InputAudio.Format
		}
	default:
		c.kind = "unknown:" + w.Type
	}
	return nil
}

// ToolChoice is the tagged union over OpenAI's tool_choice field:
// a bare mode string ("none"|"auto"|"required"), {type:"function", function:
// {name}}, {type:"custom", custom:{name}}, or {type:"allowed_tools", ...}.
type ToolChoice struct {
	kind         string
	mode         string
	functionName string
	customName   string
	allowedMode  string
	allowedTools []string
}

func ToolChoiceMode(mode string) *ToolChoice   { return &ToolChoice{kind: "mode", mode: mode} }
func ToolChoiceFunction(name string) *ToolChoice {
	return &ToolChoice{kind: "function", functionName: name}
}
func ToolChoiceCustom(name string) *ToolChoice { return &ToolChoice{kind: "custom", customName: name} }
func ToolChoiceAllowedTools(mode string, tools []string) *ToolChoice {
	return &ToolChoice{kind: "allowed_tools", allowedMode: mode, allowedTools: tools}
}

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case "mode":
		return json.Marshal(c.mode)
	case "function":
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": c.functionName},
		})
	case "custom":
		return json.Marshal(map[string]any{
			"type":   "custom",
			"custom": map[string]string{"name": c.customName},
		})
	case "allowed_tools":
		return json.Marshal(map[string]any{
			"type": "allowed_tools",
			"allowed_tools": map[string]any{
				"mode":  c.allowedMode,
				"tools": c.allowedTools,
			},
		})
	default:
		return json.Marshal(c.mode)
	}
}

func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.kind, c.mode = "mode", asString
		return nil
	}
	var asObject struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
		Custom struct {
			Name string `json:"name"`
		} `json:"custom"`
		AllowedTools struct {
			Mode  string   `json:"mode"`
			Tools []string `json:"tools"`
		} `json:"allowed_tools"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return err
	}
	c.kind = asObject.Type
	switch asObject.Type {
	case "function":
		c.functionName = asObject.Function.Name
	case "custom":
		c.customName = asObject.Custom.Name
	case "allowed_tools":
		c.allowedMode = asObject.AllowedTools.Mode
		c.allowedTools = asObject.AllowedTools.Tools
	}
	return nil
}

// ResponseFormat mirrors OpenAI's response_format: {type: "text"|
// "json_object"|"json_schema", json_schema: {name, schema, strict}}.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

type JSONSchemaSpec struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}
