package schema_test

import (
	"errors"
	"testing"

	"github.com/stevemurr/todo-sync-server/schema"
)

func boundedShape() *schema.Shape {
	return schema.NewShape(
		schema.Field{Name: "name", Type: schema.String, Required: true, MinLength: 2, MaxLength: 5},
		schema.Field{Name: "score", Type: schema.Number, Minimum: schema.Bound(0), Maximum: schema.Bound(100)},
		schema.Field{Name: "ratio", Type: schema.Number, ExclusiveMinimum: schema.Bound(0), ExclusiveMaximum: schema.Bound(1)},
		schema.Field{Name: "count", Type: schema.Integer},
		schema.Field{Name: "code", Type: schema.String, Pattern: "^[A-Z]+$"},
		schema.Field{Name: "role", Type: schema.String, Enum: []string{"admin", "user"}},
	)
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name     string
		doc      map[string]any
		wantPath string // empty means the document is valid
	}{
		{"minimal", map[string]any{"name": "Bob"}, ""},
		{"all fields", map[string]any{
			"name": "Bob", "score": float64(50), "ratio": 0.5, "count": float64(3), "code": "ABC", "role": "user",
		}, ""},
		{"int values", map[string]any{"name": "Bob", "score": 7, "count": int64(2)}, ""},
		{"bounds inclusive", map[string]any{"name": "Bob", "score": float64(0)}, ""},
		{"missing required", map[string]any{}, "$.name"},
		{"wrong type", map[string]any{"name": float64(1)}, "$.name"},
		{"too short", map[string]any{"name": "A"}, "$.name"},
		{"too long", map[string]any{"name": "ABCDEF"}, "$.name"},
		{"below minimum", map[string]any{"name": "Bob", "score": float64(-1)}, "$.score"},
		{"above maximum", map[string]any{"name": "Bob", "score": 101}, "$.score"},
		{"at exclusive minimum", map[string]any{"name": "Bob", "ratio": float64(0)}, "$.ratio"},
		{"at exclusive maximum", map[string]any{"name": "Bob", "ratio": float64(1)}, "$.ratio"},
		{"fractional integer", map[string]any{"name": "Bob", "count": 5.5}, "$.count"},
		{"pattern", map[string]any{"name": "Bob", "code": "lower"}, "$.code"},
		{"enum", map[string]any{"name": "Bob", "role": "root"}, "$.role"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := boundedShape().Validate(tc.doc)
			if tc.wantPath == "" {
				if err != nil {
					t.Fatalf("expected pass: %v", err)
				}
				return
			}
			var ve *schema.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Path != tc.wantPath {
				t.Fatalf("expected path %s, got %s (%v)", tc.wantPath, ve.Path, err)
			}
		})
	}
}

func TestValidateBoundsOnPartial(t *testing.T) {
	if _, err := boundedShape().ValidatePartial(map[string]any{"score": float64(150)}); err == nil {
		t.Fatal("partial updates must respect numeric bounds")
	}
	if _, err := boundedShape().ValidatePartial(map[string]any{"code": "XYZ"}); err != nil {
		t.Fatalf("expected pass: %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &schema.ValidationError{Path: "$.title", Reason: "Title must not be empty"}
	if got, want := err.Error(), "data validation failed: $.title: Title must not be empty"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	doc := schema.ForDocument(err, "abc")
	if got, want := doc.Error(), "invalid document with ID abc: $.title: Title must not be empty"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err.DocID != "" {
		t.Fatal("ForDocument must not modify its argument")
	}

	skipped := schema.Skipping(doc)
	if got, want := skipped.Error(), "skipping invalid document with ID abc: $.title: Title must not be empty"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if doc.Skipped {
		t.Fatal("Skipping must not modify its argument")
	}

	plain := schema.ForDocument(errors.New("boom"), "xyz")
	if plain.DocID != "xyz" || plain.Reason != "boom" {
		t.Fatalf("unexpected wrap: %+v", plain)
	}
}
