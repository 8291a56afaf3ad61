package convert

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

var ignoreFieldIDs = cmpopts.IgnoreFields(model.FormField{}, "ID")

func sampleForm() model.FormSchema {
	return model.FormSchema{
		ID:          "company-registration",
		Title:       "Company registration",
		Description: "Registers a company",
		Fields: []model.FormField{
			{
				ID:          "f1",
				Name:        "nif",
				Type:        model.FieldTypeString,
				Title:       "NIF",
				Placeholder: "123456789",
				Required:    true,
				Validation: &model.Validation{
					Pattern:   "^[0-9]{9}$",
					MinLength: intPtr(9),
					MaxLength: intPtr(9),
					ExternalSource: &model.ExternalDataSource{
						Enabled:       true,
						Endpoint:      "https://api.example.com/nif/validate",
						Method:        "POST",
						AuthKey:       "registry",
						RequestParams: map[string]string{"country": "PT"},
					},
				},
			},
			{
				ID:    "f2",
				Name:  "cae",
				Type:  model.FieldTypeString,
				Title: "Economic activity",
				ExternalSource: &model.ExternalDataSource{
					Enabled:             true,
					Endpoint:            "https://api.example.com/cae",
					Method:              "GET",
					Headers:             map[string]string{"Accept": "application/json"},
					ResponseMapping:     &model.ResponseMapping{ValueField: "code", LabelField: "description"},
					ResponseDataMapping: map[string]string{"activityCode": "code"},
				},
			},
			{
				ID:      "f3",
				Name:    "size",
				Type:    model.FieldTypeString,
				Title:   "Size",
				Default: "small",
				Options: []model.Option{{Label: "Small", Value: "small"}, {Label: "Large", Value: "large"}},
			},
			{
				ID:          "f4",
				Name:        "employees",
				Type:        model.FieldTypeNumber,
				Title:       "Employees",
				Description: "Head count",
				Required:    true,
				Validation:  &model.Validation{Min: floatPtr(0), Max: floatPtr(5000)},
			},
			{
				ID:     "f5",
				Name:   "founded",
				Type:   model.FieldTypeString,
				Format: model.FieldFormatDate,
				Title:  "Founded",
			},
			{ID: "f6", Name: "active", Type: model.FieldTypeBoolean, Title: "Active", Default: false},
		},
	}
}

func TestRoundTripFlatForm(t *testing.T) {
	form := sampleForm()
	raw, err := Marshal(form)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ID != form.ID || got.Title != form.Title || got.Description != form.Description || got.IsMultiStep {
		t.Fatalf("unexpected form header %+v", got)
	}
	if diff := cmp.Diff(form.Fields, got.Fields, ignoreFieldIDs); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	for _, field := range got.Fields {
		if field.ID != model.DeterministicFieldID(form.ID, field.Name) {
			t.Fatalf("expected deterministic id for %q, got %q", field.Name, field.ID)
		}
	}
}

func TestEnumAlignment(t *testing.T) {
	form := model.FormSchema{Fields: []model.FormField{{
		Name: "letter", Type: model.FieldTypeString, Title: "Letter",
		Options: []model.Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}},
	}}}
	doc := ToJSONSchema(form)
	prop, ok := doc.Object.Property("letter")
	if !ok {
		t.Fatalf("expected property")
	}
	if diff := cmp.Diff([]any{"a", "b"}, prop.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, prop.EnumNames); diff != "" {
		t.Fatalf("enumNames mismatch (-want +got):\n%s", diff)
	}

	back, err := FromJSONSchema(doc)
	if err != nil {
		t.Fatalf("from json schema: %v", err)
	}
	if diff := cmp.Diff(form.Fields[0].Options, back.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingEnumNameFallsBackToValue(t *testing.T) {
	form, err := ParseDocument([]byte(`{"properties":{"n":{"type":"number","enum":[1,2.5,"x"],"enumNames":["One"]}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []model.Option{{Label: "One", Value: float64(1)}, {Label: "2.5", Value: 2.5}, {Label: "x", Value: "x"}}
	if diff := cmp.Diff(want, form.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredDerivation(t *testing.T) {
	withRequired := ToJSONSchema(model.FormSchema{Fields: []model.FormField{
		{Name: "name", Type: model.FieldTypeString},
		{Name: "email", Type: model.FieldTypeString, Required: true},
	}})
	if diff := cmp.Diff([]string{"email"}, withRequired.Object.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	raw, err := json.Marshal(ToJSONSchema(model.FormSchema{Fields: []model.FormField{{Name: "name", Type: model.FieldTypeString}}}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"required"`) {
		t.Fatalf("expected no required key, got %s", raw)
	}
}

func TestPlainPropertyHasNoOptionsOrSources(t *testing.T) {
	form, err := ParseDocument([]byte(`{"title":"Plain","properties":{"note":{}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []model.FormField{{Name: "note", Type: model.FieldTypeString, Title: "note"}}
	if diff := cmp.Diff(want, form.Fields, ignoreFieldIDs); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestDisabledSourcesAreNotEmitted(t *testing.T) {
	form := model.FormSchema{Fields: []model.FormField{{
		Name:           "cae",
		Type:           model.FieldTypeString,
		ExternalSource: &model.ExternalDataSource{Enabled: false, Endpoint: "https://api.example.com/cae"},
		Validation:     &model.Validation{ExternalSource: &model.ExternalDataSource{Endpoint: "https://api.example.com/check"}},
	}}}
	raw, err := Marshal(form)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "x-externalSource") || strings.Contains(string(raw), "x-validation") {
		t.Fatalf("expected disabled sources to be omitted, got %s", raw)
	}
}

func TestEmittedSourceDefaultsMethod(t *testing.T) {
	form := model.FormSchema{Fields: []model.FormField{{
		Name:           "cae",
		Type:           model.FieldTypeString,
		ExternalSource: &model.ExternalDataSource{Enabled: true, Endpoint: "https://api.example.com/cae", Method: "post"},
	}}}
	prop, _ := ToJSONSchema(form).Object.Property("cae")
	if prop.Extensions.ExternalSource.Method != "POST" {
		t.Fatalf("expected upper-cased method, got %q", prop.Extensions.ExternalSource.Method)
	}
	if form.Fields[0].ExternalSource.Method != "post" {
		t.Fatalf("expected input form to stay untouched")
	}
}

func TestUnknownKeysDroppedOnFlatPathKeptOnStepPath(t *testing.T) {
	flat := []byte(`{"title":"Flat","properties":{"a":{"type":"string","x-custom":{"keep":true},"x-externalSource":{"endpoint":"https://api.example.com/a"}}},"x-root":1}`)
	form, err := ParseDocument(flat)
	if err != nil {
		t.Fatalf("parse flat: %v", err)
	}
	out, err := Marshal(form)
	if err != nil {
		t.Fatalf("marshal flat: %v", err)
	}
	if strings.Contains(string(out), "x-custom") || strings.Contains(string(out), "x-root") {
		t.Fatalf("expected unknown keys dropped on flat path, got %s", out)
	}
	if !strings.Contains(string(out), `"x-externalSource":{"enabled":true,"endpoint":"https://api.example.com/a","method":"GET"}`) {
		t.Fatalf("expected defined extension kept with defaults, got %s", out)
	}

	stepSchema := `{"type":"object","properties":{"a":{"type":"string","x-custom":{"keep":true}}},"x-root":1}`
	envelope := []byte(`{"isMultiStep":true,"title":"Wizard","steps":[{"id":"one","title":"One","schema":` + stepSchema + `}]}`)
	multi, err := ParseDocument(envelope)
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	if len(multi.Fields) != 0 {
		t.Fatalf("expected no flat fields on a multi-step form")
	}
	again, err := Marshal(multi)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if !strings.Contains(string(again), `"schema":`+stepSchema) {
		t.Fatalf("expected step schema verbatim, got %s", again)
	}
}

func TestMultiStepEnvelopeShape(t *testing.T) {
	form := model.FormSchema{ID: "wizard", Title: "Wizard", IsMultiStep: true, Steps: []model.FormStep{
		{ID: "b", Title: "Second", Schema: json.RawMessage(`{"type":"object","properties":{"x":{"type":"string"}}}`)},
		{ID: "a", Title: "First"},
	}}
	doc := ToJSONSchema(form)
	if !doc.IsMultiStep() {
		t.Fatalf("expected envelope")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"isMultiStep":true,"$id":"wizard","title":"Wizard","steps":[` +
		`{"id":"b","title":"Second","schema":{"type":"object","properties":{"x":{"type":"string"}}}},` +
		`{"id":"a","title":"First","schema":{"type":"object","properties":{},"required":[]}}]}`
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}

	back, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var ids []string
	for _, step := range back.Steps {
		ids = append(ids, step.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
		t.Fatalf("step order mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedInput(t *testing.T) {
	_, err := ParseDocument([]byte(`{"properties":"nope"}`))
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) || malformed.Path != "#/properties" {
		t.Fatalf("expected path #/properties, got %v", err)
	}

	_, err = ParseDocument([]byte(`"just a string"`))
	if !errors.Is(err, ErrConversionMismatch) || !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected conversion mismatch, got %v", err)
	}

	_, err = FromJSONSchema(jsonschema.Document{})
	if !errors.Is(err, ErrConversionMismatch) {
		t.Fatalf("expected conversion mismatch for empty document, got %v", err)
	}
}

func TestDefaultsOnImport(t *testing.T) {
	form, err := ParseDocument([]byte(`{"properties":{"age":{"type":"integer","title":"Age"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form.Title != DefaultFormTitle {
		t.Fatalf("expected default title, got %q", form.Title)
	}
	if form.ID != model.DeterministicFormID(DefaultFormTitle) {
		t.Fatalf("expected deterministic form id, got %q", form.ID)
	}
	if form.Fields[0].Type != model.FieldTypeNumber {
		t.Fatalf("expected integer to map to number, got %q", form.Fields[0].Type)
	}
}

func TestBooleanSubschemaBecomesPlainField(t *testing.T) {
	form, err := ParseDocument([]byte(`{"type":"object","properties":{"anything":true,"never":false,"name":{"type":"string","title":"Name"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []model.FormField{
		{Name: "anything", Type: model.FieldTypeString, Title: "anything"},
		{Name: "never", Type: model.FieldTypeString, Title: "never"},
		{Name: "name", Type: model.FieldTypeString, Title: "Name"},
	}
	if diff := cmp.Diff(want, form.Fields, ignoreFieldIDs); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseDocument([]byte(`{"type":"object","properties":{"count":3}}`))
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) || malformed.Path != "#/properties/count" {
		t.Fatalf("expected malformed input at #/properties/count, got %v", err)
	}
}

func TestNumericValuesRoundTrip(t *testing.T) {
	var form model.FormSchema
	form.Title = "Sizes"
	if _, err := form.AddField(model.FormField{
		Name:    "size",
		Type:    model.FieldTypeNumber,
		Default: 3,
		Options: []model.Option{{Label: "One", Value: 1}, {Label: "Two", Value: int64(2)}, {Label: "Three", Value: float32(3)}},
	}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	raw, err := Marshal(form)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(form.Fields, back.Fields, ignoreFieldIDs); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if _, ok := back.Fields[0].Options[0].Value.(float64); !ok {
		t.Fatalf("numeric option values decode as float64, got %T", back.Fields[0].Options[0].Value)
	}
}

func TestAuthoredTitlesKeepWhitespace(t *testing.T) {
	flat, err := ParseDocument([]byte(`{"type":"object","title":" Padded ","description":" spaced ","properties":{}}`))
	if err != nil {
		t.Fatalf("parse flat: %v", err)
	}
	if flat.Title != " Padded " || flat.Description != " spaced " {
		t.Fatalf("authored header changed: %q %q", flat.Title, flat.Description)
	}

	multi, err := ParseDocument([]byte(`{"isMultiStep":true,"title":" Wizard ","steps":[{"id":"a","title":" First ","schema":{"type":"object","properties":{}}},{"title":"  ","schema":{"type":"object","properties":{}}}]}`))
	if err != nil {
		t.Fatalf("parse multi: %v", err)
	}
	if multi.Title != " Wizard " {
		t.Fatalf("form title = %q", multi.Title)
	}
	got := []string{multi.Steps[0].Title, multi.Steps[1].Title, multi.Steps[1].ID}
	if diff := cmp.Diff([]string{" First ", "Step 2", "step-1"}, got); diff != "" {
		t.Fatalf("step header mismatch (-want +got):\n%s", diff)
	}
}
