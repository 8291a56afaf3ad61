package multistep

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
)

// ResponseSuffix names the companion key holding the record behind a
// selection: "<field>_response".
const ResponseSuffix = "_response"

// ResponseKey returns the companion key for field.
func ResponseKey(field string) string {
	return field + ResponseSuffix
}

// propagate copies mapped attributes of every stored selection record into
// their target fields. Running it again with the same inputs changes nothing.
func propagate(object jsonschema.ObjectSchema, data map[string]any) {
	if data == nil {
		return
	}
	for _, prop := range object.Properties {
		src := prop.Extensions.ExternalSource
		if src == nil || len(src.ResponseDataMapping) == 0 {
			continue
		}
		record, ok := data[ResponseKey(prop.Name)].(map[string]any)
		if !ok {
			continue
		}
		for target, sourceKey := range src.ResponseDataMapping {
			if value, found := lookupRecord(record, sourceKey); found {
				data[target] = value
			}
		}
	}
}

// lookupRecord reads key from record, falling back to a gjson path so nested
// attributes such as "address.city" can be mapped.
func lookupRecord(record map[string]any, key string) (any, bool) {
	if value, ok := record[key]; ok {
		return value, true
	}
	if !strings.ContainsAny(key, ".#|") {
		return nil, false
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(raw, key)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// merge flattens the step tables in step order. Later steps win on key
// collisions; companion response keys are left out.
func merge(steps []compiledStep, tables []map[string]any) map[string]any {
	out := make(map[string]any)
	for idx, table := range tables {
		for key, value := range table {
			if isCompanion(steps[idx].object, key) {
				continue
			}
			out[key] = deepCopy(value)
		}
	}
	return out
}

// isCompanion reports whether key is a response companion rather than a
// declared property.
func isCompanion(object jsonschema.ObjectSchema, key string) bool {
	if !strings.HasSuffix(key, ResponseSuffix) {
		return false
	}
	_, declared := object.Property(key)
	return !declared
}

func stripCompanions(object jsonschema.ObjectSchema, data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if isCompanion(object, key) {
			continue
		}
		out[key] = value
	}
	return out
}

func cloneData(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneData(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
