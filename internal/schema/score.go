package schema

// Score is the built-in structured-output type for agent steps that grade a
// result rather than produce free-form content: a bounded integer score plus
// the rationale behind it.
type Score struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// JSONSchema implements JSONSchemaProvider with a fixed schema rather than
// relying on reflection, so the valid score range is enforced by the schema
// itself instead of living only in documentation.
func (Score) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":  map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"reason": map[string]any{"type": "string"},
		},
		"required":             []string{"score", "reason"},
		"additionalProperties": false,
	}
}
