package widgets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/resolver"
)

// ValidationStatus is the visual state of a validation widget.
type ValidationStatus string

const (
	StatusIdle    ValidationStatus = "idle"
	StatusPending ValidationStatus = "pending"
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
	StatusFailed  ValidationStatus = "failed"
)

// ValueValidator runs delegated validation.
type ValueValidator interface {
	Validate(ctx context.Context, src *model.ExternalDataSource, value string) (resolver.ValidationResult, error)
}

// ValidationState is a snapshot of a validation widget. Value is the value
// the status refers to.
type ValidationState struct {
	Status  ValidationStatus
	Value   string
	Message string
	Err     error
}

// ValidationOption configures a ValidationWidget.
type ValidationOption func(*validationConfig)

type validationConfig struct {
	window    time.Duration
	scheduler resolver.Scheduler
}

// WithDebounce sets the quiet window and the scheduler driving it.
func WithDebounce(window time.Duration, scheduler resolver.Scheduler) ValidationOption {
	return func(cfg *validationConfig) {
		cfg.window = window
		cfg.scheduler = scheduler
	}
}

// ValidationWidget validates a field against an external endpoint after the
// user stops typing. Editing is never blocked; each change supersedes the
// checks issued before it.
type ValidationWidget struct {
	field     string
	source    *model.ExternalDataSource
	validator ValueValidator
	reporter  Reporter
	debouncer *resolver.Debouncer
	gen       resolver.Generation

	mu    sync.Mutex
	state ValidationState
}

// NewValidationWidget binds a validation widget to one field.
func NewValidationWidget(field string, src *model.ExternalDataSource, validator ValueValidator, reporter Reporter, opts ...ValidationOption) *ValidationWidget {
	cfg := validationConfig{window: resolver.DefaultDebounceWindow}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &ValidationWidget{
		field:     field,
		source:    src,
		validator: validator,
		reporter:  reporter,
		debouncer: resolver.NewDebouncer(cfg.window, cfg.scheduler),
		state:     ValidationState{Status: StatusIdle},
	}
}

// Field returns the bound property key.
func (w *ValidationWidget) Field() string { return w.field }

// Name returns the widget identifier.
func (w *ValidationWidget) Name() string { return WidgetExternalValidation }

// Change reports value at once and schedules its validation.
func (w *ValidationWidget) Change(ctx context.Context, value string) {
	if w.reporter != nil {
		w.reporter.SetValue(w.field, value)
	}
	seq := w.gen.Next()

	w.mu.Lock()
	if value == "" {
		w.state = ValidationState{Status: StatusIdle}
		w.mu.Unlock()
		w.debouncer.Stop()
		return
	}
	w.state = ValidationState{Status: StatusPending, Value: value}
	w.mu.Unlock()

	w.debouncer.Trigger(func() {
		w.check(ctx, seq, value)
	})
}

// Flush runs the waiting check on the caller's goroutine. It reports whether
// a check was pending.
func (w *ValidationWidget) Flush() bool {
	return w.debouncer.Flush()
}

// Stop drops the waiting check.
func (w *ValidationWidget) Stop() {
	w.debouncer.Stop()
}

// State returns a snapshot of the widget.
func (w *ValidationWidget) State() ValidationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *ValidationWidget) check(ctx context.Context, seq uint64, value string) {
	var (
		result resolver.ValidationResult
		err    error
	)
	if w.validator == nil {
		err = &resolver.Error{Message: "no validator configured"}
	} else {
		result, err = w.validator.Validate(ctx, w.source, value)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.gen.Current(seq) {
		return
	}
	next := ValidationState{Value: value, Message: result.Message}
	switch {
	case err != nil:
		err = resolver.WithField(err, w.field)
		next.Status = StatusFailed
		next.Err = err
		next.Message = failureMessage(err)
	case result.IsValid:
		next.Status = StatusValid
	default:
		next.Status = StatusInvalid
	}
	w.state = next
}

func failureMessage(err error) string {
	var resolverErr *resolver.Error
	if errors.As(err, &resolverErr) && resolverErr.Message != "" {
		return resolverErr.Message
	}
	return err.Error()
}
