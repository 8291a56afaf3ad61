package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

func fieldNames(fields []FormField) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	return names
}

func TestSetMultiStepClearsCollections(t *testing.T) {
	form := FormSchema{Title: "Contact"}
	if _, err := form.AddField(FormField{Name: "email", Type: FieldTypeString}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	form.SetMultiStep(true)
	if !form.IsMultiStep {
		t.Fatalf("expected multi-step mode")
	}
	if len(form.Fields) != 0 || len(form.Steps) != 0 {
		t.Fatalf("expected both collections empty after switch, got fields=%d steps=%d", len(form.Fields), len(form.Steps))
	}

	if _, err := form.AddStep(NewStep("Identity")); err != nil {
		t.Fatalf("add step: %v", err)
	}
	form.SetMultiStep(true)
	if len(form.Steps) != 1 {
		t.Fatalf("expected no-op when mode is unchanged, got %d steps", len(form.Steps))
	}

	form.SetMultiStep(false)
	if len(form.Fields) != 0 || len(form.Steps) != 0 {
		t.Fatalf("expected both collections empty after switching back")
	}
}

func TestAddFieldAssignsDefaults(t *testing.T) {
	var form FormSchema
	field, err := form.AddField(FormField{Name: " nif "})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}
	if field.ID == "" {
		t.Fatalf("expected generated id")
	}
	if field.Name != "nif" || field.Title != "nif" || field.Type != FieldTypeString {
		t.Fatalf("unexpected defaults: %+v", field)
	}

	if _, err := form.AddField(FormField{Name: "nif"}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestFieldOperationsRespectMode(t *testing.T) {
	form := FormSchema{IsMultiStep: true}
	if _, err := form.AddField(FormField{Name: "a"}); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode for field on multi-step form, got %v", err)
	}
	flat := FormSchema{}
	if _, err := flat.AddStep(NewStep("one")); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode for step on flat form, got %v", err)
	}
}

func TestUpdateFieldKeepsIdentity(t *testing.T) {
	var form FormSchema
	added, _ := form.AddField(FormField{Name: "email", Title: "Email"})

	err := form.UpdateField(added.ID, FormField{Title: "E-mail", Type: FieldTypeString, Format: FieldFormatEmail, Required: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := form.Field("email")
	want := FormField{ID: added.ID, Name: "email", Title: "E-mail", Type: FieldTypeString, Format: FieldFormatEmail, Required: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}

	if err := form.UpdateField(added.ID, FormField{Name: "mail"}); !errors.Is(err, ErrRenameRequired) {
		t.Fatalf("expected ErrRenameRequired, got %v", err)
	}
	if err := form.UpdateField("missing", FormField{}); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestRenameMoveRemoveField(t *testing.T) {
	var form FormSchema
	a, _ := form.AddField(FormField{Name: "a"})
	form.AddField(FormField{Name: "b"})
	form.AddField(FormField{Name: "c"})

	if err := form.RenameField("a", "b"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := form.RenameField("a", "first"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	renamed, ok := form.Field("first")
	if !ok || renamed.ID != a.ID {
		t.Fatalf("expected rename to keep the id, got %+v", renamed)
	}

	if err := form.MoveField(0, 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "first"}, fieldNames(form.Fields)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if err := form.MoveField(0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	if err := form.RemoveField(a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, fieldNames(form.Fields)); diff != "" {
		t.Fatalf("order mismatch after remove (-want +got):\n%s", diff)
	}
}

func TestStepOperations(t *testing.T) {
	form := FormSchema{IsMultiStep: true}
	one, _ := form.AddStep(NewStep("One"))
	form.AddStep(FormStep{ID: "two", Title: "Two"})

	if !strings.HasPrefix(one.ID, "step-") {
		t.Fatalf("expected step- prefix, got %q", one.ID)
	}
	if string(form.Steps[1].Schema) != string(EmptyStepSchema) {
		t.Fatalf("expected empty schema assigned, got %s", form.Steps[1].Schema)
	}

	if err := form.MoveStep(1, 0); err != nil {
		t.Fatalf("move step: %v", err)
	}
	if form.Steps[0].ID != "two" {
		t.Fatalf("expected step two first, got %q", form.Steps[0].ID)
	}
	if err := form.RenameStep(0, "Second"); err != nil {
		t.Fatalf("rename step: %v", err)
	}
	if form.Steps[0].Title != "Second" {
		t.Fatalf("unexpected title %q", form.Steps[0].Title)
	}
	if err := form.RemoveStep(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := form.RemoveStep(0); err != nil {
		t.Fatalf("remove step: %v", err)
	}
	if len(form.Steps) != 1 || form.Steps[0].ID != one.ID {
		t.Fatalf("unexpected steps after remove: %+v", form.Steps)
	}
}

func TestDeterministicFieldID(t *testing.T) {
	first := DeterministicFieldID("form-1", "email")
	if first != DeterministicFieldID("form-1", "email") {
		t.Fatalf("expected stable id")
	}
	if first == DeterministicFieldID("form-1", "phone") || first == DeterministicFieldID("form-2", "email") {
		t.Fatalf("expected id to depend on form and name")
	}
	if NewFieldID() == NewFieldID() {
		t.Fatalf("expected random ids to differ")
	}
}

func TestValidateAggregatesIssues(t *testing.T) {
	minLen, maxLen := 5, 2
	form := FormSchema{Fields: []FormField{
		{Name: "age", Type: FieldTypeNumber, Validation: &Validation{Pattern: "^[0-9]+$"}},
		{Name: "age", Type: FieldTypeString, Validation: &Validation{MinLength: &minLen, MaxLength: &maxLen}},
		{Name: "cae", Type: FieldTypeString,
			ExternalSource: &ExternalDataSource{Enabled: true, Endpoint: "https://api.example.com/cae"},
			Validation:     &Validation{ExternalSource: &ExternalDataSource{Enabled: true, Endpoint: "https://api.example.com/check", Method: "DELETE"}},
		},
		{Name: "lookup", Type: "date", ExternalSource: &ExternalDataSource{Enabled: true}},
	}}

	err := form.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}

	var got []string
	for _, issue := range multierr.Errors(err) {
		got = append(got, issue.Error())
	}
	want := []string{
		`model: field "age": pattern applies to string fields only`,
		`model: field "age": name is not unique`,
		`model: field "age": minLength 5 exceeds maxLength 2`,
		`model: field "cae": validation.externalSource method "DELETE" is not supported`,
		`model: field "cae": externalSource and validation.externalSource cannot both be enabled`,
		`model: field "lookup": unknown type "date"`,
		`model: field "lookup": externalSource is enabled without an endpoint`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAcceptsDisabledSources(t *testing.T) {
	form := FormSchema{Fields: []FormField{{
		Name:           "cae",
		Type:           FieldTypeString,
		ExternalSource: &ExternalDataSource{Enabled: false},
		Validation:     &Validation{ExternalSource: &ExternalDataSource{Enabled: true, Endpoint: "https://api.example.com/check"}},
	}}}
	if err := form.Validate(); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}
