package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// StepFields decomposes a step schema into fields using the flat algorithm.
// Field ids are derived from the step id.
func StepFields(step model.FormStep) ([]model.FormField, error) {
	schema := step.Schema
	if len(schema) == 0 {
		schema = model.EmptyStepSchema
	}
	object, err := jsonschema.ParseObject(schema)
	if err != nil {
		return nil, fmt.Errorf("convert: step %q: %w", step.ID, err)
	}
	return fieldsFromObject(step.ID, object), nil
}

// SetStepFields rebuilds the step schema from fields. The schema's $id, title
// and description are kept; properties and required are regenerated, so
// unknown keys in the previous schema are dropped.
func SetStepFields(step model.FormStep, fields []model.FormField) (model.FormStep, error) {
	if err := checkNames(fields); err != nil {
		return step, fmt.Errorf("convert: step %q: %w", step.ID, err)
	}
	object := objectFromFields(fields)
	if len(step.Schema) > 0 {
		previous, err := jsonschema.ParseObject(step.Schema)
		if err != nil {
			return step, fmt.Errorf("convert: step %q: %w", step.ID, err)
		}
		object.ID = previous.ID
		object.Title = previous.Title
		object.Description = previous.Description
	}
	raw, err := json.Marshal(object)
	if err != nil {
		return step, fmt.Errorf("convert: encode step %q: %w", step.ID, err)
	}
	step.Schema = raw
	return step, nil
}

func checkNames(fields []model.FormField) error {
	seen := make(map[string]struct{}, len(fields))
	for idx, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("field #%d: %w", idx, model.ErrEmptyName)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", model.ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
