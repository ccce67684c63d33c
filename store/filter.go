package store

import (
	"fmt"
	"reflect"
)

// OpEqual is the only filter operator the client evaluates.
const OpEqual = "=="

// Filter is a single-field predicate passed through to Query and
// OnSnapshot.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Where builds a Filter, mirroring the document-database call it replaces.
func Where(field, op string, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// Match reports whether doc satisfies the filter. A missing field never
// matches.
func (f Filter) Match(doc Doc) bool {
	v, ok := doc[f.Field]
	if !ok {
		return false
	}
	return equalValues(v, f.Value)
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		if f.Field == "" {
			return fmt.Errorf("filter %q: empty field", f)
		}
		if f.Op != OpEqual {
			return fmt.Errorf("filter %q: unsupported operator %q", f, f.Op)
		}
	}
	return nil
}

func matchAll(doc Doc, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(doc) {
			return false
		}
	}
	return true
}

// equalValues compares decoded JSON against caller-supplied Go values, so
// 3, int64(3) and float64(3) are equal and named string types compare by
// their string value.
func equalValues(a, b any) bool {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		return ok && fa == fb
	}
	if sa, ok := toString(a); ok {
		sb, ok := toString(b)
		return ok && sa == sb
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
