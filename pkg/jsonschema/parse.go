package jsonschema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// ParseDocument detects the document shape and parses it. The multi-step
// envelope is checked first: isMultiStep must be true and steps an array.
func ParseDocument(raw []byte) (Document, error) {
	if !gjson.ValidBytes(raw) {
		return Document{}, malformed("#", "document is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Document{}, mismatch("#", "document must be an object")
	}
	top := members(root)

	if flag, ok := top["isMultiStep"]; ok && flag.Type == gjson.True {
		steps, ok := top["steps"]
		switch {
		case ok && steps.IsArray():
			envelope, err := parseEnvelope(top, steps)
			if err != nil {
				return Document{}, err
			}
			return Document{MultiStep: &envelope}, nil
		case ok:
			return Document{}, mismatch("#/steps", "steps must be an array")
		}
	}

	object, err := parseObject(top, "#")
	if err != nil {
		return Document{}, err
	}
	return Document{Object: &object}, nil
}

// ParseObject parses a flat object schema, such as a step schema.
func ParseObject(raw []byte) (ObjectSchema, error) {
	if !gjson.ValidBytes(raw) {
		return ObjectSchema{}, malformed("#", "schema is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return ObjectSchema{}, malformed("#", "schema must be an object")
	}
	return parseObject(members(root), "#")
}

func parseEnvelope(top map[string]gjson.Result, steps gjson.Result) (MultiStepEnvelope, error) {
	envelope := MultiStepEnvelope{
		ID:          stringMember(top, "$id"),
		Title:       stringMember(top, "title"),
		Description: stringMember(top, "description"),
	}
	for idx, item := range steps.Array() {
		path := joinPath("#", "steps", fmt.Sprint(idx))
		if !item.IsObject() {
			return MultiStepEnvelope{}, malformed(path, "step must be an object")
		}
		fields := members(item)
		step := Step{
			ID:    stringMember(fields, "id"),
			Title: stringMember(fields, "title"),
		}
		if strings.TrimSpace(step.ID) == "" {
			step.ID = fmt.Sprintf("step-%d", idx)
		}
		schema, ok := fields["schema"]
		switch {
		case !ok || schema.Type == gjson.Null:
			step.Schema = append(json.RawMessage(nil), model.EmptyStepSchema...)
		case !schema.IsObject():
			return MultiStepEnvelope{}, malformed(joinPath(path, "schema"), "step schema must be an object")
		default:
			step.Schema = json.RawMessage(schema.Raw)
			if strings.TrimSpace(step.Title) == "" {
				step.Title = schema.Get("title").String()
			}
		}
		if strings.TrimSpace(step.Title) == "" {
			step.Title = fmt.Sprintf("Step %d", idx+1)
		}
		envelope.Steps = append(envelope.Steps, step)
	}
	return envelope, nil
}

func parseObject(top map[string]gjson.Result, path string) (ObjectSchema, error) {
	out := ObjectSchema{
		ID:          stringMember(top, "$id"),
		Title:       stringMember(top, "title"),
		Description: stringMember(top, "description"),
	}

	if props, ok := top["properties"]; ok && props.Type != gjson.Null {
		propsPath := joinPath(path, "properties")
		if !props.IsObject() {
			return ObjectSchema{}, malformed(propsPath, "properties must be an object")
		}
		var parseErr error
		props.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			propPath := joinPath(propsPath, name)
			var payload map[string]any
			switch value.Type {
			case gjson.True, gjson.False:
				payload = map[string]any{}
			default:
				var ok bool
				if payload, ok = value.Value().(map[string]any); !ok {
					parseErr = malformed(propPath, "property must be an object or a boolean")
					return false
				}
			}
			prop, err := parseProperty(payload, propPath)
			if err != nil {
				parseErr = err
				return false
			}
			out.Properties = append(out.Properties, NamedProperty{Name: name, Property: prop})
			return true
		})
		if parseErr != nil {
			return ObjectSchema{}, parseErr
		}
	}

	if required, ok := top["required"]; ok && required.Type != gjson.Null {
		requiredPath := joinPath(path, "required")
		if !required.IsArray() {
			return ObjectSchema{}, malformed(requiredPath, "required must be an array")
		}
		for idx, item := range required.Array() {
			if item.Type != gjson.String || strings.TrimSpace(item.Str) == "" {
				return ObjectSchema{}, malformed(joinPath(requiredPath, fmt.Sprint(idx)), "required entries must be strings")
			}
			out.Required = append(out.Required, item.Str)
		}
	}
	return out, nil
}

func parseProperty(payload map[string]any, path string) (Property, error) {
	out := Property{
		Type:        strings.TrimSpace(readString(payload, "type")),
		Title:       readString(payload, "title"),
		Description: readString(payload, "description"),
		Default:     payload["default"],
		Format:      strings.TrimSpace(readString(payload, "format")),
		Placeholder: readString(payload, "placeholder"),
	}

	if raw, ok := payload["pattern"]; ok {
		pattern, ok := raw.(string)
		if !ok {
			return Property{}, malformed(path, "pattern must be a string")
		}
		out.Pattern = pattern
	}
	for _, bound := range []struct {
		key    string
		target **float64
	}{{"minimum", &out.Minimum}, {"maximum", &out.Maximum}} {
		raw, ok := payload[bound.key]
		if !ok {
			continue
		}
		value, ok := toFloat(raw)
		if !ok {
			return Property{}, malformed(path, "%s must be a number", bound.key)
		}
		*bound.target = &value
	}
	for _, bound := range []struct {
		key    string
		target **int
	}{{"minLength", &out.MinLength}, {"maxLength", &out.MaxLength}} {
		raw, ok := payload[bound.key]
		if !ok {
			continue
		}
		value, ok := toInt(raw)
		if !ok {
			return Property{}, malformed(path, "%s must be an integer", bound.key)
		}
		*bound.target = &value
	}

	if raw, ok := payload["enum"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return Property{}, malformed(path, "enum must be an array")
		}
		out.Enum = append([]any(nil), list...)
	}
	if raw, ok := payload["enumNames"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return Property{}, malformed(path, "enumNames must be an array")
		}
		for _, item := range list {
			if label, ok := item.(string); ok {
				out.EnumNames = append(out.EnumNames, label)
				continue
			}
			out.EnumNames = append(out.EnumNames, fmt.Sprint(item))
		}
	}

	if raw, ok := payload[KeyExternalSource]; ok && raw != nil {
		src, err := decodeSource(raw, joinPath(path, KeyExternalSource))
		if err != nil {
			return Property{}, err
		}
		out.Extensions.ExternalSource = src
	}
	if raw, ok := payload[KeyValidation]; ok && raw != nil {
		validationPath := joinPath(path, KeyValidation)
		bag, ok := raw.(map[string]any)
		if !ok {
			return Property{}, malformed(validationPath, "extension must be an object")
		}
		if nested, ok := bag["externalSource"]; ok && nested != nil {
			src, err := decodeSource(nested, joinPath(validationPath, "externalSource"))
			if err != nil {
				return Property{}, err
			}
			out.Extensions.ValidationExternalSource = src
		}
	}
	return out, nil
}

// decodeSource maps an extension payload onto ExternalDataSource. A missing
// enabled key means enabled; a missing method means GET.
func decodeSource(raw any, path string) (*model.ExternalDataSource, error) {
	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, malformed(path, "extension must be an object")
	}
	var src model.ExternalDataSource
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &src,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, &MalformedError{Path: path, Reason: "extension decoder", Err: err}
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, &MalformedError{Path: path, Reason: "extension could not be decoded", Err: err}
	}
	if _, ok := payload["enabled"]; !ok {
		src.Enabled = true
	}
	src.Endpoint = strings.TrimSpace(src.Endpoint)
	src.Method = strings.ToUpper(strings.TrimSpace(src.Method))
	if src.Method == "" {
		src.Method = model.MethodGet
	}
	return &src, nil
}

func members(node gjson.Result) map[string]gjson.Result {
	out := make(map[string]gjson.Result)
	node.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value
		return true
	})
	return out
}

func stringMember(fields map[string]gjson.Result, key string) string {
	value, ok := fields[key]
	if !ok || value.Type != gjson.String {
		return ""
	}
	return value.Str
}

func readString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	str, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return str
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
		return 0, false
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func joinPath(path string, segments ...string) string {
	if path == "" {
		path = "#"
	}
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		path = path + "/" + escapeJSONPointer(segment)
	}
	return path
}

func escapeJSONPointer(value string) string {
	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	return replacer.Replace(value)
}
