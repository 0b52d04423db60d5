package gemini

import "encoding/json"

// ErrorBody is the documented {"error": {...}} envelope returned on
// non-2xx responses.
type ErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// DecodeErrorBody parses a non-2xx response body, tolerating an unparseable
// body by returning the zero value.
func DecodeErrorBody(body []byte) ErrorBody {
	var e ErrorBody
	_ = json.Unmarshal(body, &e)
	return e
}
