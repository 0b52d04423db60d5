package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Reflect derives a JSON Schema object document from v's struct fields. Each
// exported field becomes a property named by its `json` tag (falling back to
// the Go field name), typed by its Go kind. A field is required unless its
// json tag carries ",omitempty" or its type is a pointer, slice or map. An
// optional `jsonschema:"description=...,enum=a|b|c"` tag annotates a field
// further.
//
// Reflect supports the scalar kinds, slices, maps, pointers, and nested
// structs; it does not attempt to resolve interface-typed fields and returns
// an error if it encounters one.
func Reflect(v any) (map[string]any, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return nil, fmt.Errorf("reflect: nil value")
	}
	if t.Kind() != reflect.Struct {
		return reflectValue(t)
	}
	return reflectStruct(t)
}

func reflectStruct(t reflect.Type) (map[string]any, error) {
	props := map[string]any{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitempty := jsonFieldName(f)
		if name == "-" {
			continue
		}

		fieldSchema, err := reflectValue(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		applyTagAnnotations(fieldSchema, f.Tag.Get("jsonschema"))
		props[name] = fieldSchema

		optional := omitempty || f.Type.Kind() == reflect.Ptr || f.Type.Kind() == reflect.Slice || f.Type.Kind() == reflect.Map
		if !optional {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out, nil
}

func reflectValue(t reflect.Type) (map[string]any, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "contentEncoding": "base64"}, nil
		}
		items, err := reflectValue(t.Elem())
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case reflect.Map:
		return map[string]any{"type": "object"}, nil
	case reflect.Struct:
		return reflectStruct(t)
	case reflect.Interface:
		return nil, fmt.Errorf("cannot derive a schema for an interface-typed field")
	default:
		return nil, fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

func jsonFieldName(f reflect.StructField) (name string, omitempty bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

func applyTagAnnotations(schema map[string]any, tag string) {
	if tag == "" {
		return
	}
	for _, kv := range strings.Split(tag, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], parts[1]
		switch key {
		case "description":
			schema["description"] = val
		case "enum":
			values := strings.Split(val, "|")
			enum := make([]any, len(values))
			for i, v := range values {
				enum[i] = v
			}
			schema["enum"] = enum
		}
	}
}
