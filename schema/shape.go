package schema

// Record is a document body: field name to decoded JSON value.
type Record = map[string]any

// Type is the declared runtime type of a field.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
)

// IDField is the field WithID adds to a shape.
const IDField = "id"

// Field describes one field of a Shape.
type Field struct {
	Name     string
	Type     Type
	Required bool
	// Default is applied by Validate when an optional field is absent.
	Default any
	// MinLength and MaxLength apply to strings; zero means unset.
	MinLength int
	MaxLength int
	// Pattern is a regular expression string values must match.
	Pattern string
	Enum    []string
	// Numeric bounds; nil means unset.
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	// Message replaces the engine's reason when this field fails.
	Message string
}

// Bound returns a pointer to v, for the numeric bounds of a Field.
func Bound(v float64) *float64 { return &v }

// Shape is the declarative description of a record.
type Shape struct {
	fields []Field
}

// NewShape builds a shape from fields, in declaration order.
func NewShape(fields ...Field) *Shape {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return &Shape{fields: fs}
}

// Fields returns a copy of the shape's fields.
func (s *Shape) Fields() []Field {
	fs := make([]Field, len(s.fields))
	copy(fs, s.fields)
	return fs
}

// Field looks up a field by name.
func (s *Shape) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// WithID returns a derived shape that also requires a string id field.
func (s *Shape) WithID() *Shape {
	if f, ok := s.Field(IDField); ok && f.Required && f.Type == String {
		return s
	}
	fs := make([]Field, 0, len(s.fields)+1)
	for _, f := range s.fields {
		if f.Name != IDField {
			fs = append(fs, f)
		}
	}
	fs = append(fs, Field{Name: IDField, Type: String, Required: true})
	return &Shape{fields: fs}
}

// Validate checks a full record. Every required field must be present and
// every present field well typed. Absent optional fields with a Default are
// filled in, and fields the shape does not declare are dropped.
func (s *Shape) Validate(v any) (Record, error) {
	return s.validate(v, false)
}

// ValidatePartial checks a field update set: every field is optional, but
// any field present must satisfy its declaration. No defaults are applied.
func (s *Shape) ValidatePartial(v any) (Record, error) {
	return s.validate(v, true)
}

func (s *Shape) validate(v any, partial bool) (Record, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, violation("$", "expected type %q, got %q", "object", jsonType(v))
	}
	out := make(Record, len(s.fields))
	for _, f := range s.fields {
		path := "$." + f.Name
		val, present := obj[f.Name]
		if !present {
			if partial {
				continue
			}
			if f.Required {
				return nil, f.fail(violation(path, "missing required field"))
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		if err := validateValue(f.jsonSchema(), val, path); err != nil {
			return nil, f.fail(err)
		}
		out[f.Name] = val
	}
	return out, nil
}

func (f Field) fail(err error) error {
	if f.Message == "" {
		return err
	}
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{DocID: ve.DocID, Path: ve.Path, Reason: f.Message}
	}
	return err
}

func (f Field) jsonSchema() map[string]any {
	m := map[string]any{"type": string(f.Type)}
	if f.MinLength > 0 {
		m["minLength"] = f.MinLength
	}
	if f.MaxLength > 0 {
		m["maxLength"] = f.MaxLength
	}
	if f.Pattern != "" {
		m["pattern"] = f.Pattern
	}
	for key, bound := range map[string]*float64{
		"minimum":          f.Minimum,
		"maximum":          f.Maximum,
		"exclusiveMinimum": f.ExclusiveMinimum,
		"exclusiveMaximum": f.ExclusiveMaximum,
	} {
		if bound != nil {
			m[key] = *bound
		}
	}
	if len(f.Enum) > 0 {
		enum := make([]any, len(f.Enum))
		for i, e := range f.Enum {
			enum[i] = e
		}
		m["enum"] = enum
	}
	return m
}

// JSONSchema renders the shape as a draft-07 object schema. The result is
// what the store's schema registry holds and what ParseShape reads back.
func (s *Shape) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.fields))
	var required []any
	for _, f := range s.fields {
		p := f.jsonSchema()
		if f.Default != nil {
			p["default"] = f.Default
		}
		if f.Message != "" {
			p["errorMessage"] = f.Message
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
