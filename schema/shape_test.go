package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/todo-sync-server/schema"
)

func personShape() *schema.Shape {
	return schema.NewShape(
		schema.Field{Name: "name", Type: schema.String, Required: true, MinLength: 1, Message: "Name must not be empty"},
		schema.Field{Name: "age", Type: schema.Number, Required: true},
		schema.Field{Name: "nickname", Type: schema.String},
		schema.Field{Name: "active", Type: schema.Boolean, Default: true},
		schema.Field{Name: "role", Type: schema.String, Enum: []string{"admin", "user"}},
	)
}

func TestShapeValidateRoundTrip(t *testing.T) {
	records := []schema.Record{
		{"name": "John", "age": float64(30), "active": false},
		{"name": "Jane", "age": float64(25), "nickname": "JJ", "active": true, "role": "admin"},
	}
	for _, r := range records {
		got, err := personShape().Validate(r)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestShapeValidateDefaultsAndStrip(t *testing.T) {
	got, err := personShape().Validate(map[string]any{"name": "John", "age": float64(30), "unknown": 1})
	require.NoError(t, err)
	assert.Equal(t, schema.Record{"name": "John", "age": float64(30), "active": true}, got)
}

func TestShapeValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		path   string
		reason string
	}{
		{"not an object", "nope", "$", ""},
		{"missing name", map[string]any{"age": float64(1)}, "$.name", "Name must not be empty"},
		{"empty name", map[string]any{"name": "", "age": float64(1)}, "$.name", "Name must not be empty"},
		{"missing age", map[string]any{"name": "x"}, "$.age", "missing required field"},
		{"wrong age type", map[string]any{"name": "x", "age": "thirty"}, "$.age", ""},
		{"null optional", map[string]any{"name": "x", "age": float64(1), "nickname": nil}, "$.nickname", ""},
		{"bad enum", map[string]any{"name": "x", "age": float64(1), "role": "root"}, "$.role", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := personShape().Validate(tc.in)
			var ve *schema.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.path, ve.Path)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, ve.Reason)
			}
		})
	}
}

func TestShapeValidatePartial(t *testing.T) {
	s := personShape()

	got, err := s.ValidatePartial(map[string]any{"age": float64(31)})
	require.NoError(t, err)
	assert.Equal(t, schema.Record{"age": float64(31)}, got, "no defaults for partial updates")

	got, err = s.ValidatePartial(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.ValidatePartial(map[string]any{"name": ""})
	require.Error(t, err)

	_, err = s.ValidatePartial(map[string]any{"role": "root"})
	require.Error(t, err)
}

func TestShapeWithID(t *testing.T) {
	s := personShape().WithID()

	f, ok := s.Field(schema.IDField)
	require.True(t, ok)
	assert.True(t, f.Required)
	assert.Equal(t, schema.String, f.Type)
	assert.Len(t, s.Fields(), len(personShape().Fields())+1)
	assert.Same(t, s, s.WithID(), "already identified shapes are returned as is")

	_, err := s.Validate(map[string]any{"name": "x", "age": float64(1)})
	require.Error(t, err)

	got, err := s.Validate(map[string]any{"id": "abc", "name": "x", "age": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "abc", got["id"])

	_, err = s.Validate(map[string]any{"id": float64(1), "name": "x", "age": float64(1)})
	require.Error(t, err)
}

func TestShapeJSONSchema(t *testing.T) {
	js := personShape().JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.ElementsMatch(t, []any{"name", "age"}, js["required"])

	props := js["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "minLength": 1, "errorMessage": "Name must not be empty"}, props["name"])
	assert.Equal(t, true, props["active"].(map[string]any)["default"])

	// The rendered schema reads back into a shape that accepts the same records.
	parsed, err := schema.ParseShape(js)
	require.NoError(t, err)
	_, err = parsed.Validate(map[string]any{"name": "John", "age": float64(30)})
	require.NoError(t, err)
	_, err = parsed.Validate(map[string]any{"name": "John"})
	require.Error(t, err)
}
