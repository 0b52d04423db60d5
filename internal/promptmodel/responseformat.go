package promptmodel

// ResponseFormatKind selects how a model's output should be constrained.
type ResponseFormatKind string

const (
	ResponseFormatText       ResponseFormatKind = "text"
	ResponseFormatJSONObject ResponseFormatKind = "json_object"
	ResponseFormatJSONSchema ResponseFormatKind = "json_schema"
)

// ResponseFormat constrains the shape of a model's output. The SchemaName
// and Schema fields are only meaningful when Kind is ResponseFormatJSONSchema;
// Schema is a compiled-JSON-Schema document produced by internal/schema, kept
// here as a generic map so promptmodel does not import the schema package.
type ResponseFormat struct {
	Kind       ResponseFormatKind
	SchemaName string
	Schema     map[string]any
	Strict     bool
}

// TextResponseFormat is the default: unconstrained text output.
func TextResponseFormat() ResponseFormat {
	return ResponseFormat{Kind: ResponseFormatText}
}

// JSONObjectResponseFormat requests syntactically valid JSON with no fixed
// shape.
func JSONObjectResponseFormat() ResponseFormat {
	return ResponseFormat{Kind: ResponseFormatJSONObject}
}

// JSONSchemaResponseFormat requests output validated against schema, named
// name for providers that require a schema identifier.
func JSONSchemaResponseFormat(name string, schema map[string]any, strict bool) ResponseFormat {
	return ResponseFormat{Kind: ResponseFormatJSONSchema, SchemaName: name, Schema: schema, Strict: strict}
}
