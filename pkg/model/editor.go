package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFieldNotFound indicates that no field carries the requested id or name.
	ErrFieldNotFound = errors.New("model: field not found")
	// ErrEmptyName indicates a field without a property key.
	ErrEmptyName = errors.New("model: field name is required")
	// ErrDuplicateName indicates a field name already used in the same scope.
	ErrDuplicateName = errors.New("model: duplicate field name")
	// ErrWrongMode indicates a field operation on a multi-step form or a step
	// operation on a flat form.
	ErrWrongMode = errors.New("model: operation not available in this form mode")
	// ErrIndexOutOfRange indicates a step or field position outside the list.
	ErrIndexOutOfRange = errors.New("model: index out of range")
	// ErrRenameRequired indicates an update that tried to change a field name.
	ErrRenameRequired = errors.New("model: field names change through RenameField")
)

// EmptyStepSchema is the object schema assigned to newly created steps.
var EmptyStepSchema = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)

// NewStep returns a step with a fresh id and an empty object schema.
func NewStep(title string) FormStep {
	return FormStep{
		ID:     "step-" + NewFieldID(),
		Title:  strings.TrimSpace(title),
		Schema: append(json.RawMessage(nil), EmptyStepSchema...),
	}
}

// SetMultiStep switches the form mode. Switching is destructive: both
// collections are cleared so the new mode starts empty. Setting the current
// mode again is a no-op.
func (f *FormSchema) SetMultiStep(multi bool) {
	if f == nil || f.IsMultiStep == multi {
		return
	}
	f.IsMultiStep = multi
	f.Fields = nil
	f.Steps = nil
}

// AddField appends a field to a flat form, assigning an id when missing.
func (f *FormSchema) AddField(field FormField) (FormField, error) {
	if f.IsMultiStep {
		return FormField{}, ErrWrongMode
	}
	field.Name = strings.TrimSpace(field.Name)
	if field.Name == "" {
		return FormField{}, ErrEmptyName
	}
	if f.indexByName(field.Name) >= 0 {
		return FormField{}, fmt.Errorf("%w: %q", ErrDuplicateName, field.Name)
	}
	if field.ID == "" {
		field.ID = NewFieldID()
	}
	if field.Type == "" {
		field.Type = FieldTypeString
	}
	if field.Title == "" {
		field.Title = field.Name
	}
	field.normalizeValues()
	f.Fields = append(f.Fields, field)
	return field, nil
}

// UpdateField replaces the field identified by id. The stored id and name are
// kept; a differing non-empty name is rejected.
func (f *FormSchema) UpdateField(id string, field FormField) error {
	if f.IsMultiStep {
		return ErrWrongMode
	}
	idx := f.indexByID(id)
	if idx < 0 {
		return fmt.Errorf("%w: id %q", ErrFieldNotFound, id)
	}
	current := f.Fields[idx]
	if field.Name != "" && field.Name != current.Name {
		return fmt.Errorf("%w: %q", ErrRenameRequired, current.Name)
	}
	field.ID = current.ID
	field.Name = current.Name
	field.normalizeValues()
	f.Fields[idx] = field
	return nil
}

// RemoveField deletes the field identified by id.
func (f *FormSchema) RemoveField(id string) error {
	if f.IsMultiStep {
		return ErrWrongMode
	}
	idx := f.indexByID(id)
	if idx < 0 {
		return fmt.Errorf("%w: id %q", ErrFieldNotFound, id)
	}
	f.Fields = append(f.Fields[:idx], f.Fields[idx+1:]...)
	return nil
}

// MoveField moves the field at position from to position to.
func (f *FormSchema) MoveField(from, to int) error {
	if f.IsMultiStep {
		return ErrWrongMode
	}
	moved, err := move(f.Fields, from, to)
	if err != nil {
		return err
	}
	f.Fields = moved
	return nil
}

// RenameField changes a field's property key.
func (f *FormSchema) RenameField(oldName, newName string) error {
	if f.IsMultiStep {
		return ErrWrongMode
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	idx := f.indexByName(oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, oldName)
	}
	if oldName == newName {
		return nil
	}
	if f.indexByName(newName) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}
	f.Fields[idx].Name = newName
	return nil
}

// Field returns the field with the given name.
func (f *FormSchema) Field(name string) (FormField, bool) {
	idx := f.indexByName(name)
	if idx < 0 {
		return FormField{}, false
	}
	return f.Fields[idx], true
}

// AddStep appends a step to a multi-step form.
func (f *FormSchema) AddStep(step FormStep) (FormStep, error) {
	if !f.IsMultiStep {
		return FormStep{}, ErrWrongMode
	}
	if step.ID == "" {
		step.ID = "step-" + NewFieldID()
	}
	if len(step.Schema) == 0 {
		step.Schema = append(json.RawMessage(nil), EmptyStepSchema...)
	}
	f.Steps = append(f.Steps, step)
	return step, nil
}

// RemoveStep deletes the step at idx.
func (f *FormSchema) RemoveStep(idx int) error {
	if !f.IsMultiStep {
		return ErrWrongMode
	}
	if idx < 0 || idx >= len(f.Steps) {
		return fmt.Errorf("%w: step %d", ErrIndexOutOfRange, idx)
	}
	f.Steps = append(f.Steps[:idx], f.Steps[idx+1:]...)
	return nil
}

// MoveStep reorders steps.
func (f *FormSchema) MoveStep(from, to int) error {
	if !f.IsMultiStep {
		return ErrWrongMode
	}
	moved, err := move(f.Steps, from, to)
	if err != nil {
		return err
	}
	f.Steps = moved
	return nil
}

// RenameStep sets the title of the step at idx.
func (f *FormSchema) RenameStep(idx int, title string) error {
	if !f.IsMultiStep {
		return ErrWrongMode
	}
	if idx < 0 || idx >= len(f.Steps) {
		return fmt.Errorf("%w: step %d", ErrIndexOutOfRange, idx)
	}
	f.Steps[idx].Title = strings.TrimSpace(title)
	return nil
}

func (f *FormSchema) indexByID(id string) int {
	for idx, field := range f.Fields {
		if field.ID == id {
			return idx
		}
	}
	return -1
}

func (f *FormSchema) indexByName(name string) int {
	for idx, field := range f.Fields {
		if field.Name == name {
			return idx
		}
	}
	return -1
}

func move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: move %d -> %d", ErrIndexOutOfRange, from, to)
	}
	if from == to {
		return items, nil
	}
	item := items[from]
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out, nil
}
