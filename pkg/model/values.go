package model

import (
	"encoding/json"
	"reflect"
)

// NormalizeValue returns v in the shape encoding/json decodes it to: every
// Go number becomes float64, recursively through slices and string-keyed
// maps. Defaults and option values read back from JSON Schema always have
// this shape.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return v
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = NormalizeValue(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}

// normalizeValues applies NormalizeValue to the default and option values.
func (f *FormField) normalizeValues() {
	f.Default = NormalizeValue(f.Default)
	if len(f.Options) == 0 {
		return
	}
	options := make([]Option, len(f.Options))
	for i, option := range f.Options {
		options[i] = Option{Label: option.Label, Value: NormalizeValue(option.Value)}
	}
	f.Options = options
}
