package validation

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// Lint checks a form against the model invariants. Multi-step forms also have
// each step schema decomposed and its fields checked, so issues carry the
// step path.
func Lint(form model.FormSchema) SchemaValidationResult {
	var issues []SchemaIssue
	for _, err := range multierr.Errors(form.Validate()) {
		issues = append(issues, issueFromModelError("", err))
	}

	if form.IsMultiStep {
		for idx, step := range form.Steps {
			prefix := fmt.Sprintf("#/steps/%d", idx)
			fields, err := convert.StepFields(step)
			if err != nil {
				issues = append(issues, SchemaIssue{Path: prefix, Message: err.Error()})
				continue
			}
			for _, fieldErr := range multierr.Errors(model.ValidateFields(fields)) {
				issues = append(issues, issueFromModelError(prefix, fieldErr))
			}
		}
	}

	return SchemaValidationResult{Valid: len(issues) == 0, Issues: issues}
}

func issueFromModelError(prefix string, err error) SchemaIssue {
	var fieldErr *model.FieldError
	if errors.As(err, &fieldErr) {
		base := prefix
		if base == "" {
			base = "#"
		}
		return SchemaIssue{
			Path:    base + "/properties/" + fieldErr.Field,
			Field:   fieldErr.Field,
			Message: fieldErr.Message,
		}
	}
	var stepErr *model.StepError
	if errors.As(err, &stepErr) {
		return SchemaIssue{Path: fmt.Sprintf("#/steps/%d", stepErr.Step), Message: stepErr.Message}
	}
	return SchemaIssue{Path: prefix, Message: err.Error()}
}
