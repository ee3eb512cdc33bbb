package analysis

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// Sanitize returns a JSON-safe copy of v in which every NaN and ±Inf
// float has been normalized to nil. Results cross the boundary to the
// API collaborator as JSON, which cannot represent those values, so
// they must never leak out of this core.
func Sanitize(v any) any {
	if v == nil {
		return nil
	}
	return sanitizeValue(reflect.ValueOf(v))
}

// Encode sanitizes and marshals v as indented JSON
func Encode(v any) ([]byte, error) {
	return json.MarshalIndent(Sanitize(v), "", "  ")
}

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

func sanitizeValue(rv reflect.Value) any {
	// Types with custom JSON encodings (time.Time, uuid.UUID) are
	// passed through; they never carry raw floats.
	if rv.IsValid() && rv.Type().Implements(jsonMarshalerType) {
		return rv.Interface()
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i))
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				continue
			}
			out[key] = sanitizeValue(iter.Value())
		}
		return out

	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, omitempty, skip := jsonFieldName(field)
			if skip {
				continue
			}
			value := sanitizeValue(rv.Field(i))
			if omitempty && isEmpty(value) {
				continue
			}
			out[name] = value
		}
		return out

	default:
		if !rv.IsValid() {
			return nil
		}
		return rv.Interface()
	}
}

func jsonFieldName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case int:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		rv := reflect.ValueOf(v)
		return rv.Kind() != reflect.Invalid && rv.IsZero()
	}
}
