package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// DefaultFormTitle is used when an imported document has no title.
const DefaultFormTitle = "Form"

// ToJSONSchema converts the internal model to its wire document. Flat forms
// become one object schema; multi-step forms become an envelope whose step
// schemas are emitted verbatim.
func ToJSONSchema(form model.FormSchema) jsonschema.Document {
	if form.IsMultiStep {
		envelope := jsonschema.MultiStepEnvelope{
			ID:          form.ID,
			Title:       form.Title,
			Description: form.Description,
			Steps:       make([]jsonschema.Step, 0, len(form.Steps)),
		}
		for _, step := range form.Steps {
			schema := step.Schema
			if len(schema) == 0 {
				schema = model.EmptyStepSchema
			}
			envelope.Steps = append(envelope.Steps, jsonschema.Step{
				ID:     step.ID,
				Title:  step.Title,
				Schema: append(json.RawMessage(nil), schema...),
			})
		}
		return jsonschema.Document{MultiStep: &envelope}
	}

	object := objectFromFields(form.Fields)
	object.ID = form.ID
	object.Title = form.Title
	object.Description = form.Description
	return jsonschema.Document{Object: &object}
}

// Marshal converts the form and encodes it as JSON.
func Marshal(form model.FormSchema) ([]byte, error) {
	raw, err := json.Marshal(ToJSONSchema(form))
	if err != nil {
		return nil, fmt.Errorf("convert: encode form %q: %w", form.ID, err)
	}
	return raw, nil
}

// ParseDocument parses raw JSON and converts it to the internal model.
func ParseDocument(raw []byte) (model.FormSchema, error) {
	doc, err := jsonschema.ParseDocument(raw)
	if err != nil {
		return model.FormSchema{}, err
	}
	return FromJSONSchema(doc)
}

// FromJSONSchema converts a parsed wire document back to the internal model.
// Step schemas stay opaque; only flat documents are decomposed into fields.
// Field ids are regenerated deterministically from the form id and the
// property key.
func FromJSONSchema(doc jsonschema.Document) (model.FormSchema, error) {
	switch {
	case doc.MultiStep != nil:
		envelope := doc.MultiStep
		form := model.FormSchema{
			ID:          envelope.ID,
			Title:       titleOrDefault(envelope.Title),
			Description: envelope.Description,
			IsMultiStep: true,
			Steps:       make([]model.FormStep, 0, len(envelope.Steps)),
		}
		if strings.TrimSpace(form.ID) == "" {
			form.ID = model.DeterministicFormID(form.Title)
		}
		for _, step := range envelope.Steps {
			form.Steps = append(form.Steps, model.FormStep{
				ID:     step.ID,
				Title:  step.Title,
				Schema: append(json.RawMessage(nil), step.Schema...),
			})
		}
		return form, nil
	case doc.Object != nil:
		object := doc.Object
		form := model.FormSchema{
			ID:          object.ID,
			Title:       titleOrDefault(object.Title),
			Description: object.Description,
		}
		if strings.TrimSpace(form.ID) == "" {
			form.ID = model.DeterministicFormID(form.Title)
		}
		form.Fields = fieldsFromObject(form.ID, *object)
		return form, nil
	default:
		return model.FormSchema{}, mismatchError("#", "document holds neither an object schema nor an envelope")
	}
}

func objectFromFields(fields []model.FormField) jsonschema.ObjectSchema {
	object := jsonschema.ObjectSchema{Properties: make([]jsonschema.NamedProperty, 0, len(fields))}
	for _, field := range fields {
		object.Properties = append(object.Properties, jsonschema.NamedProperty{
			Name:     field.Name,
			Property: propertyFromField(field),
		})
		if field.Required {
			object.Required = append(object.Required, field.Name)
		}
	}
	return object
}

func propertyFromField(field model.FormField) jsonschema.Property {
	prop := jsonschema.Property{
		Type:        string(field.Type),
		Title:       field.Title,
		Description: field.Description,
		Default:     model.NormalizeValue(field.Default),
		Format:      string(field.Format),
		Placeholder: field.Placeholder,
	}
	if prop.Type == "" {
		prop.Type = string(model.FieldTypeString)
	}
	if prop.Title == "" {
		prop.Title = field.Name
	}
	if v := field.Validation; v != nil {
		prop.Pattern = v.Pattern
		prop.Minimum = copyPtr(v.Min)
		prop.Maximum = copyPtr(v.Max)
		prop.MinLength = copyPtr(v.MinLength)
		prop.MaxLength = copyPtr(v.MaxLength)
		prop.Extensions.ValidationExternalSource = emittedSource(v.ExternalSource)
	}
	if len(field.Options) > 0 {
		prop.Enum = make([]any, 0, len(field.Options))
		prop.EnumNames = make([]string, 0, len(field.Options))
		for _, option := range field.Options {
			prop.Enum = append(prop.Enum, model.NormalizeValue(option.Value))
			prop.EnumNames = append(prop.EnumNames, option.Label)
		}
	}
	prop.Extensions.ExternalSource = emittedSource(field.ExternalSource)
	return prop
}

// emittedSource returns the wire copy of an enabled source, or nil.
func emittedSource(src *model.ExternalDataSource) *model.ExternalDataSource {
	if src == nil || !src.Enabled {
		return nil
	}
	out := src.Clone()
	out.Method = strings.ToUpper(strings.TrimSpace(out.Method))
	if out.Method == "" {
		out.Method = model.MethodGet
	}
	return out
}

func fieldsFromObject(scope string, object jsonschema.ObjectSchema) []model.FormField {
	if len(object.Properties) == 0 {
		return nil
	}
	required := make(map[string]struct{}, len(object.Required))
	for _, name := range object.Required {
		required[name] = struct{}{}
	}
	fields := make([]model.FormField, 0, len(object.Properties))
	for _, prop := range object.Properties {
		field := fieldFromProperty(prop.Name, prop.Property)
		field.ID = model.DeterministicFieldID(scope, prop.Name)
		_, field.Required = required[prop.Name]
		fields = append(fields, field)
	}
	return fields
}

func fieldFromProperty(name string, prop jsonschema.Property) model.FormField {
	field := model.FormField{
		Name:           name,
		Type:           fieldType(prop.Type),
		Format:         model.FieldFormat(prop.Format),
		Title:          prop.Title,
		Description:    prop.Description,
		Placeholder:    prop.Placeholder,
		Default:        prop.Default,
		ExternalSource: prop.Extensions.ExternalSource,
	}
	if field.Title == "" {
		field.Title = name
	}
	if len(prop.Enum) > 0 {
		field.Options = make([]model.Option, 0, len(prop.Enum))
		for idx, value := range prop.Enum {
			label := fmt.Sprint(value)
			if idx < len(prop.EnumNames) {
				label = prop.EnumNames[idx]
			}
			field.Options = append(field.Options, model.Option{Label: label, Value: value})
		}
	}
	validation := &model.Validation{
		Pattern:        prop.Pattern,
		Min:            prop.Minimum,
		Max:            prop.Maximum,
		MinLength:      prop.MinLength,
		MaxLength:      prop.MaxLength,
		ExternalSource: prop.Extensions.ValidationExternalSource,
	}
	if !validation.IsZero() {
		field.Validation = validation
	}
	return field
}

func fieldType(raw string) model.FieldType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return model.FieldTypeString
	case "integer":
		return model.FieldTypeNumber
	default:
		return model.FieldType(raw)
	}
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultFormTitle
	}
	return title
}

func copyPtr[T any](in *T) *T {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}
