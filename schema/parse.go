package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceURL = "mem://collection.schema.json"

// ParseShape turns a registered JSON Schema into a Shape.
//
// The document is first compiled as draft-07, so malformed schemas are
// rejected with the compiler's message. Only flat object schemas whose
// properties are scalars can become a Shape, and a keyword the Shape cannot
// enforce rejects the schema rather than being ignored.
func ParseShape(raw map[string]any) (*Shape, error) {
	if raw == nil {
		return nil, fmt.Errorf("schema is empty")
	}
	if err := compile(raw); err != nil {
		return nil, err
	}

	if t, ok := raw["type"]; ok && t != "object" {
		return nil, fmt.Errorf("schema type must be \"object\", got %v", t)
	}
	if err := checkKeywords("schema", raw, objectKeywords); err != nil {
		return nil, err
	}
	if ap, ok := raw["additionalProperties"]; ok {
		if _, ok := ap.(bool); !ok {
			return nil, fmt.Errorf("schema: additionalProperties must be a boolean")
		}
	}

	required := map[string]bool{}
	if req, ok := toList(raw["required"]); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	props, _ := raw["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		p, ok := props[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("property %q: expected an object schema", name)
		}
		f, err := parseField(name, p)
		if err != nil {
			return nil, err
		}
		f.Required = required[name]
		fields = append(fields, f)
	}
	for name := range required {
		if _, ok := props[name]; !ok {
			fields = append(fields, Field{Name: name, Type: String, Required: true})
		}
	}
	return NewShape(fields...), nil
}

// Keywords a Shape enforces, plus annotations that carry no constraint.
// Undeclared fields are always dropped, so additionalProperties holds either way.
var (
	objectKeywords = keywordSet("$schema", "$id", "title", "description", "type", "properties", "required", "additionalProperties")
	fieldKeywords  = keywordSet("title", "description", "type", "default", "errorMessage",
		"minLength", "maxLength", "pattern", "enum",
		"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum")
)

func keywordSet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func checkKeywords(where string, m map[string]any, allowed map[string]bool) error {
	var unknown []string
	for k := range m {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%s: unsupported keyword %q", where, unknown[0])
}

func parseField(name string, p map[string]any) (Field, error) {
	f := Field{Name: name}
	if err := checkKeywords(fmt.Sprintf("property %q", name), p, fieldKeywords); err != nil {
		return f, err
	}
	t, _ := p["type"].(string)
	switch Type(t) {
	case String, Number, Integer, Boolean:
		f.Type = Type(t)
	default:
		return f, fmt.Errorf("property %q: unsupported type %q", name, t)
	}
	if v, ok := toFloat(p["minLength"]); ok {
		f.MinLength = int(v)
	}
	if v, ok := toFloat(p["maxLength"]); ok {
		f.MaxLength = int(v)
	}
	if v, ok := p["pattern"].(string); ok {
		f.Pattern = v
	}
	for key, dst := range map[string]**float64{
		"minimum":          &f.Minimum,
		"maximum":          &f.Maximum,
		"exclusiveMinimum": &f.ExclusiveMinimum,
		"exclusiveMaximum": &f.ExclusiveMaximum,
	} {
		if v, ok := toFloat(p[key]); ok {
			*dst = Bound(v)
		}
	}
	if enum, ok := toList(p["enum"]); ok {
		for _, e := range enum {
			s, ok := e.(string)
			if !ok {
				return f, fmt.Errorf("property %q: only string enums are supported", name)
			}
			f.Enum = append(f.Enum, s)
		}
	}
	if d, ok := p["default"]; ok {
		f.Default = d
	}
	if m, ok := p["errorMessage"].(string); ok {
		f.Message = m
	}
	return f, nil
}

func compile(raw map[string]any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(resourceURL, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if _, err := compiler.Compile(resourceURL); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}
