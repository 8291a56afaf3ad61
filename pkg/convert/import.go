package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formwizard/pkg/formsapi"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// Defaults applied to forms combined from several imported schemas.
const (
	CombinedFormTitle       = "Multi-step form"
	CombinedFormDescription = "Form with multiple steps"
)

// ImportOptions controls how a list of schemas is imported.
type ImportOptions struct {
	// AsSteps combines an array of several schemas into one multi-step form.
	AsSteps bool
	// Title overrides the combined form title.
	Title string
}

// ImportDocuments converts import text into forms. A single document yields
// one form. An array yields one form per entry, or a single multi-step form
// when AsSteps is set and the array holds more than one schema.
func ImportDocuments(raw []byte, opts ImportOptions) ([]model.FormSchema, error) {
	if !gjson.ValidBytes(raw) {
		return nil, malformedError("#", "import text is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		form, err := ParseDocument(raw)
		if err != nil {
			return nil, err
		}
		return []model.FormSchema{form}, nil
	}

	entries := root.Array()
	if len(entries) == 0 {
		return nil, malformedError("#", "import contains no schemas")
	}
	for idx, entry := range entries {
		if !entry.IsObject() {
			return nil, mismatchError(fmt.Sprintf("#/%d", idx), "schema must be an object")
		}
	}

	if opts.AsSteps && len(entries) > 1 {
		form := model.FormSchema{
			ID:          model.NewFieldID(),
			Title:       CombinedFormTitle,
			Description: CombinedFormDescription,
			IsMultiStep: true,
			Steps:       make([]model.FormStep, 0, len(entries)),
		}
		if title := strings.TrimSpace(opts.Title); title != "" {
			form.Title = title
		}
		for idx, entry := range entries {
			title := strings.TrimSpace(entry.Get("title").String())
			if title == "" {
				title = fmt.Sprintf("Step %d", idx+1)
			}
			form.Steps = append(form.Steps, model.FormStep{
				ID:     fmt.Sprintf("step-%d", idx),
				Title:  title,
				Schema: json.RawMessage(entry.Raw),
			})
		}
		return []model.FormSchema{form}, nil
	}

	forms := make([]model.FormSchema, 0, len(entries))
	for idx, entry := range entries {
		form, err := ParseDocument([]byte(entry.Raw))
		if err != nil {
			return nil, fmt.Errorf("convert: import entry %d: %w", idx, err)
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// ToPayload builds the forms API body for a form.
func ToPayload(form model.FormSchema) (formsapi.FormPayload, error) {
	raw, err := Marshal(form)
	if err != nil {
		return formsapi.FormPayload{}, err
	}
	return formsapi.FormPayload{
		Title:       form.Title,
		Description: form.Description,
		IsMultiStep: form.IsMultiStep,
		JSONSchema:  raw,
	}, nil
}

// FromRecord converts a stored form back to the internal model. The record
// title and description win over the ones embedded in the schema.
func FromRecord(record formsapi.FormRecord) (model.FormSchema, error) {
	form, err := ParseDocument(record.JSONSchema)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("convert: form %q: %w", record.DocumentID, err)
	}
	if record.Title != "" {
		form.Title = record.Title
	}
	if record.Description != "" {
		form.Description = record.Description
	}
	return form, nil
}
