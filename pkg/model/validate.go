package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// FieldError reports one invariant violation on a named field or step.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("model: field %q: %s", e.Field, e.Message)
}

// StepError reports an invariant violation on a step, by index.
type StepError struct {
	Step    int
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("model: step %d: %s", e.Step, e.Message)
}

// Validate checks the form invariants and returns every violation combined
// with multierr. Use multierr.Errors to list them individually.
func (f FormSchema) Validate() error {
	var err error
	if f.IsMultiStep {
		if len(f.Fields) > 0 {
			err = multierr.Append(err, fmt.Errorf("model: multi-step form carries flat fields"))
		}
		seen := make(map[string]int, len(f.Steps))
		for idx, step := range f.Steps {
			if strings.TrimSpace(step.ID) == "" {
				err = multierr.Append(err, &StepError{Step: idx, Message: "id is required"})
			} else if prev, ok := seen[step.ID]; ok {
				err = multierr.Append(err, &StepError{Step: idx, Message: fmt.Sprintf("id %q already used by step %d", step.ID, prev)})
			} else {
				seen[step.ID] = idx
			}
			if len(step.Schema) > 0 && !json.Valid(step.Schema) {
				err = multierr.Append(err, &StepError{Step: idx, Message: "schema is not valid JSON"})
			}
		}
		return err
	}
	if len(f.Steps) > 0 {
		err = multierr.Append(err, fmt.Errorf("model: flat form carries steps"))
	}
	return multierr.Append(err, ValidateFields(f.Fields))
}

// ValidateFields checks a field set as it would appear in one object schema.
func ValidateFields(fields []FormField) error {
	var err error
	names := make(map[string]struct{}, len(fields))
	for idx, field := range fields {
		label := field.Name
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("#%d", idx)
			err = multierr.Append(err, &FieldError{Field: label, Message: "name is required"})
		} else if _, dup := names[field.Name]; dup {
			err = multierr.Append(err, &FieldError{Field: label, Message: "name is not unique"})
		}
		names[field.Name] = struct{}{}
		err = multierr.Append(err, validateField(label, field))
	}
	return err
}

func validateField(name string, field FormField) error {
	var err error
	issue := func(format string, args ...any) {
		err = multierr.Append(err, &FieldError{Field: name, Message: fmt.Sprintf(format, args...)})
	}

	switch field.Type {
	case FieldTypeString, FieldTypeNumber, FieldTypeBoolean, FieldTypeArray, FieldTypeObject:
	default:
		issue("unknown type %q", field.Type)
	}
	switch field.Format {
	case FieldFormatNone, FieldFormatDate, FieldFormatDateTime, FieldFormatEmail, FieldFormatURI, FieldFormatRegex:
	default:
		issue("unknown format %q", field.Format)
	}

	if v := field.Validation; v != nil {
		if v.Pattern != "" {
			if field.Type != FieldTypeString {
				issue("pattern applies to string fields only")
			}
			if _, compileErr := regexp.Compile(v.Pattern); compileErr != nil {
				issue("pattern does not compile: %v", compileErr)
			}
		}
		if (v.Min != nil || v.Max != nil) && field.Type != FieldTypeNumber {
			issue("min/max apply to number fields only")
		}
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			issue("min %v exceeds max %v", *v.Min, *v.Max)
		}
		if (v.MinLength != nil || v.MaxLength != nil) && field.Type != FieldTypeString {
			issue("minLength/maxLength apply to string fields only")
		}
		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			issue("minLength %d exceeds maxLength %d", *v.MinLength, *v.MaxLength)
		}
		if v.ExternalSource != nil {
			err = multierr.Append(err, validateSource(name, "validation.externalSource", v.ExternalSource))
		}
	}
	if field.ExternalSource != nil {
		err = multierr.Append(err, validateSource(name, "externalSource", field.ExternalSource))
	}
	if field.ExternalSource != nil && field.ExternalSource.Enabled &&
		field.Validation != nil && field.Validation.ExternalSource != nil && field.Validation.ExternalSource.Enabled {
		issue("externalSource and validation.externalSource cannot both be enabled")
	}
	return err
}

func validateSource(name, role string, src *ExternalDataSource) error {
	if !src.Enabled {
		return nil
	}
	var err error
	if strings.TrimSpace(src.Endpoint) == "" {
		err = multierr.Append(err, &FieldError{Field: name, Message: role + " is enabled without an endpoint"})
	}
	switch strings.ToUpper(src.Method) {
	case "", MethodGet, MethodPost:
	default:
		err = multierr.Append(err, &FieldError{Field: name, Message: fmt.Sprintf("%s method %q is not supported", role, src.Method)})
	}
	return err
}
