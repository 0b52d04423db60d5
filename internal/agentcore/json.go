package agentcore

import "encoding/json"

func marshalCanonical(v any) ([]byte, error) {
	return json.Marshal(v)
}
