// Package schema derives and validates JSON Schema documents for the
// Response Format Resolver: turning a Go type or a caller-supplied schema
// into a provider-ready, compiled schema, and validating decoded model
// output against it.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSONSchemaProvider lets a caller supply a hand-written schema for its type
// instead of relying on reflection-based derivation.
type JSONSchemaProvider interface {
	JSONSchema() map[string]any
}

// ResolvedFormat is the outcome of resolving a response format: a named,
// provider-ready schema plus whether it qualifies for strict mode.
type ResolvedFormat struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Resolver compiles and validates JSON Schema documents.
type Resolver struct{}

// NewResolver returns a ready-to-use Resolver. It holds no state; it exists
// as a receiver so future caching of compiled schemas has somewhere to live.
func NewResolver() *Resolver { return &Resolver{} }

// Describe derives a ResolvedFormat for v. If v implements JSONSchemaProvider
// its schema is used verbatim; otherwise the schema is derived by reflecting
// over v's struct fields (see Reflect). name identifies the schema to
// providers that require a name alongside the document (OpenAI).
func (r *Resolver) Describe(name string, v any) (*ResolvedFormat, error) {
	var raw map[string]any
	if p, ok := v.(JSONSchemaProvider); ok {
		raw = p.JSONSchema()
	} else {
		derived, err := Reflect(v)
		if err != nil {
			return nil, fmt.Errorf("schema: describe %q: %w", name, err)
		}
		raw = derived
	}
	return &ResolvedFormat{Name: name, Schema: raw, Strict: isStrictEligible(raw)}, nil
}

// isStrictEligible applies OpenAI's narrower strict-mode subset: a schema
// using anyOf at the top level, or one that permits additional properties
// (explicitly true, or simply absent on an object schema), cannot be used
// in strict mode.
func isStrictEligible(raw map[string]any) bool {
	if _, ok := raw["anyOf"]; ok {
		return false
	}
	typ, _ := raw["type"].(string)
	if typ == "object" {
		ap, present := raw["additionalProperties"]
		if !present {
			return false
		}
		if b, ok := ap.(bool); ok && b {
			return false
		}
	}
	return true
}

// Compile parses and compiles raw into a validator. It returns an error if
// raw is not a well-formed JSON Schema document.
func Compile(raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, fmt.Errorf("schema: compile: nil schema")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: compile: marshal: %w", err)
	}
	decoded, err := jsonschema.UnmarshalJSON(strings.NewReader(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("schema: compile: parse: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("resolved.json", decoded); err != nil {
		return nil, fmt.Errorf("schema: compile: add resource: %w", err)
	}
	compiled, err := c.Compile("resolved.json")
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	return compiled, nil
}

// ValidationError wraps a jsonschema validation failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("schema: validation failed: %v", e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

// Validate compiles raw and validates data against it in one step. Callers
// validating the same schema repeatedly should call Compile once and reuse
// the result instead.
func Validate(raw map[string]any, data map[string]any) error {
	compiled, err := Compile(raw)
	if err != nil {
		return err
	}
	if err := compiled.Validate(data); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
