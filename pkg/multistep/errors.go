package multistep

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/validation"
)

var (
	// ErrNoSteps is returned by New when the form has no steps.
	ErrNoSteps = errors.New("multistep: form has no steps")
	// ErrNoSubmit is wrapped by SubmissionError when the final step is
	// reached without a SubmitFunc.
	ErrNoSubmit = errors.New("multistep: no submit handler configured")
)

// StepValidationError carries the issues that kept the runtime on a step.
type StepValidationError struct {
	Step   int
	Issues []validation.SchemaIssue
}

func (e *StepValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("multistep: step %d is invalid", e.Step)
	}
	first := e.Issues[0]
	location := first.Field
	if location == "" {
		location = first.Path
	}
	msg := fmt.Sprintf("multistep: step %d: %s", e.Step, first.Message)
	if location != "" {
		msg = fmt.Sprintf("multistep: step %d: %s: %s", e.Step, location, first.Message)
	}
	if extra := len(e.Issues) - 1; extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return msg
}

// SubmissionError reports a failed finalize. The runtime stays on Step so the
// submission can be retried.
type SubmissionError struct {
	Step int
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("multistep: submit from step %d: %v", e.Step, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
