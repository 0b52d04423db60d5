// Package gemini implements the Gemini/Vertex GenerateContent wire format,
// shared by the Gemini, Vertex, and Google provider tags.
package gemini

import "encoding/json"

// Settings holds the GenerateContent "generation_config" knobs.
type Settings struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	CandidateCount  *int     `json:"candidateCount,omitempty"`

	ResponseMIMEType   string         `json:"responseMimeType,omitempty"`
	ResponseJSONSchema map[string]any `json:"responseJsonSchema,omitempty"`
}

// Request is the GenerateContent request body.
type Request struct {
	Contents         []Content         `json:"contents"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
	GenerationConfig *Settings        `json:"generationConfig,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Content is one turn: a role plus an ordered list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is the tagged union over Gemini's content part variants: text, blob
// (inline media), file_data, function_call, function_response,
// executable_code, code_execution_result.
type Part struct {
	kind           string
	text           string
	blobMIMEType   string
	blobData       string
	fileURI        string
	fileMIMEType   string
	functionName   string
	functionArgs   map[string]any
	functionResult map[string]any
	language       string
	code           string
	outcome        string
	output         string
}

func TextPart(text string) Part { return Part{kind: "text", text: text} }

func BlobPart(mimeType, base64Data string) Part {
	return Part{kind: "blob", blobMIMEType: mimeType, blobData: base64Data}
}

func FileDataPart(mimeType, uri string) Part {
	return Part{kind: "file_data", fileMIMEType: mimeType, fileURI: uri}
}

func FunctionCallPart(name string, args map[string]any) Part {
	return Part{kind: "function_call", functionName: name, functionArgs: args}
}

func FunctionResponsePart(name string, result map[string]any) Part {
	return Part{kind: "function_response", functionName: name, functionResult: result}
}

func ExecutableCodePart(language, code string) Part {
	return Part{kind: "executable_code", language: language, code: code}
}

func CodeExecutionResultPart(outcome, output string) Part {
	return Part{kind: "code_execution_result", outcome: outcome, output: output}
}

// Kind reports which Part variant this is.
func (p Part) Kind() string { return p.kind }

// Text returns the text variant's content; it is empty for other kinds.
func (p Part) Text() string { return p.text }

// FunctionCallName returns the function_call variant's function name.
func (p Part) FunctionCallName() string { return p.functionName }

// FunctionCallArgsJSON JSON-encodes the function_call variant's arguments.
func (p Part) FunctionCallArgsJSON() string {
	data, err := json.Marshal(p.functionArgs)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type wirePart struct {
	Text         string `json:"text,omitempty"`
	InlineData   *struct {
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
	FileData *struct {
		MIMEType string `json:"mimeType"`
		FileURI  string `json:"fileUri"`
	} `json:"fileData,omitempty"`
	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args,omitempty"`
	} `json:"functionCall,omitempty"`
	FunctionResponse *struct {
		Name     string         `json:"name"`
		Response map[string]any `json:"response,omitempty"`
	} `json:"functionResponse,omitempty"`
	ExecutableCode *struct {
		Language string `json:"language"`
		Code     string `json:"code"`
	} `json:"executableCode,omitempty"`
	CodeExecutionResult *struct {
		Outcome string `json:"outcome"`
		Output  string `json:"output"`
	} `json:"codeExecutionResult,omitempty"`
}

func (p Part) MarshalJSON() ([]byte, error) {
	var w wirePart
	switch p.kind {
	case "text":
		w.Text = p.text
	case "blob":
		w.InlineData = &struct {
			MIMEType string `json:"mimeType"`
			Data     string `json:"data"`
		}{MIMEType: p.blobMIMEType, Data: p.blobData}
	case "file_data":
		w.FileData = &struct {
			MIMEType string `json:"mimeType"`
			FileURI  string `json:"fileUri"`
		}{MIMEType: p.fileMIMEType, FileURI: p.fileURI}
	case "function_call":
		w.FunctionCall = &struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args,omitempty"`
		}{Name: p.functionName, Args: p.functionArgs}
	case "function_response":
		w.FunctionResponse = &struct {
			Name     string         `json:"name"`
			Response map[string]any `json:"response,omitempty"`
		}{Name: p.functionName, Response: p.functionResult}
	case "executable_code":
		w.ExecutableCode = &struct {
			Language string `json:"language"`
			Code     string `json:"code"`
		}{Language: p.language, Code: p.code}
	case "code_execution_result":
		w.CodeExecutionResult = &struct {
			Outcome string `json:"outcome"`
			Output  string `json:"output"`
		}{Outcome: p.outcome, Output: p.output}
	}
	return json.Marshal(w)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var w wirePart
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.InlineData != nil:
		*p = Part{kind: "blob", blobMIMEType: w.InlineData.MIMEType, blobData: w.InlineData.Data}
	case w.FileData != nil:
		*p = Part{kind: "file_data", fileMIMEType: w.FileData.MIMEType, fileURI: w.FileData.FileURI}
	case w.FunctionCall != nil:
		*p = Part{kind: "function_call", functionName: w.FunctionCall.Name, functionArgs: w.FunctionCall.Args}
	case w.FunctionResponse != nil:
		*p = Part{kind: "function_response", functionName: w.FunctionResponse.Name, functionResult: w.FunctionResponse.Response}
	case w.ExecutableCode != nil:
		*p = Part{kind: "executable_code", language: w.ExecutableCode.Language, code: w.ExecutableCode.Code}
	case w.CodeExecutionResult != nil:
		*p = Part{kind: "code_execution_result", outcome: w.CodeExecutionResult.Outcome, output: w.CodeExecutionResult.Output}
	default:
		*p = Part{kind: "text", text: w.Text}
	}
	return nil
}
