// Package schema validates collection documents.
//
// Shape is the declarative record description used by the collection
// adapter. Each field renders to a scalar JSON Schema (draft-07 subset)
// and present values are checked against it by the engine in this file.
// ParseShape reads such schemas back out of the store's registry.
package schema

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sync"
)

// validateValue checks one field value against its scalar schema.
//
// Supported keywords:
//   - type (string, number, integer, boolean)
//   - minimum, maximum, exclusiveMinimum, exclusiveMaximum
//   - minLength, maxLength, pattern
//   - enum
func validateValue(schema map[string]any, value any, path string) error {
	if t, ok := schema["type"]; ok {
		if ts, ok := t.(string); ok {
			if err := checkType(ts, value, path); err != nil {
				return err
			}
		}
	}

	if enumRaw, ok := schema["enum"]; ok {
		if enumList, ok := toList(enumRaw); ok {
			if err := checkEnum(enumList, value, path); err != nil {
				return err
			}
		}
	}

	switch v := value.(type) {
	case string:
		return validateString(schema, v, path)
	case float64:
		return validateNumber(schema, v, path)
	case int:
		return validateNumber(schema, float64(v), path)
	case int64:
		return validateNumber(schema, float64(v), path)
	case json.Number:
		f, _ := v.Float64()
		return validateNumber(schema, f, path)
	}

	return nil
}

func checkType(expected string, value any, path string) error {
	actual := jsonType(value)
	if expected == "integer" {
		// Whole float64 values come out of encoding/json for integers.
		if f, ok := value.(float64); ok && f == float64(int64(f)) {
			return nil
		}
		if actual != "integer" {
			return violation(path, "expected type %q, got %q", expected, actual)
		}
		return nil
	}
	if actual != expected {
		if expected == "number" && actual == "integer" {
			return nil
		}
		return violation(path, "expected type %q, got %q", expected, actual)
	}
	return nil
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case json.Number:
		return "number"
	case int, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func checkEnum(allowed []any, value any, path string) error {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return nil
		}
	}
	return violation(path, "value %v not in enum %v", value, allowed)
}

func validateString(schema map[string]any, s string, path string) error {
	n := len([]rune(s))
	if v, ok := toFloat(schema["minLength"]); ok {
		if float64(n) < v {
			return violation(path, "string length %d is less than minLength %v", n, v)
		}
	}
	if v, ok := toFloat(schema["maxLength"]); ok {
		if float64(n) > v {
			return violation(path, "string length %d is greater than maxLength %v", n, v)
		}
	}
	if p, ok := schema["pattern"].(string); ok && p != "" {
		re, err := compilePattern(p)
		if err != nil {
			return violation(path, "invalid pattern %q: %v", p, err)
		}
		if !re.MatchString(s) {
			return violation(path, "%q does not match pattern %q", s, p)
		}
	}
	return nil
}

var patterns sync.Map // pattern -> *regexp.Regexp

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patterns.Store(p, re)
	return re, nil
}

func validateNumber(schema map[string]any, n float64, path string) error {
	if v, ok := toFloat(schema["minimum"]); ok {
		if n < v {
			return violation(path, "%v is less than minimum %v", n, v)
		}
	}
	if v, ok := toFloat(schema["maximum"]); ok {
		if n > v {
			return violation(path, "%v is greater than maximum %v", n, v)
		}
	}
	if v, ok := toFloat(schema["exclusiveMinimum"]); ok {
		if n <= v {
			return violation(path, "%v is not greater than exclusiveMinimum %v", n, v)
		}
	}
	if v, ok := toFloat(schema["exclusiveMaximum"]); ok {
		if n >= v {
			return violation(path, "%v is not less than exclusiveMaximum %v", n, v)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toList accepts both decoded JSON arrays and the []string slices that
// Go-built schemas tend to carry.
func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
