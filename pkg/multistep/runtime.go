package multistep

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/resolver"
	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/widgets"
)

// SubmitFunc receives the merged payload when the final step is committed.
type SubmitFunc func(ctx context.Context, data map[string]any) error

// StepValidator checks a step payload before the runtime moves on.
// *validation.Validator implements it.
type StepValidator interface {
	ValidateStep(ctx context.Context, schema json.RawMessage, data map[string]any) (validation.SchemaValidationResult, error)
}

// Lookup is what the bound widgets call: option loading and delegated
// validation. *resolver.Resolver implements it.
type Lookup interface {
	widgets.OptionResolver
	widgets.ValueValidator
}

// Option customises a Runtime.
type Option func(*Runtime)

// WithRegistry sets the capability to widget registry.
func WithRegistry(reg *widgets.Registry) Option {
	return func(r *Runtime) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithResolver sets the lookup used by widgets built through Widgets.
func WithResolver(lookup Lookup) Option {
	return func(r *Runtime) {
		r.lookup = lookup
	}
}

// WithValidator validates each step payload on Next.
func WithValidator(validator StepValidator) Option {
	return func(r *Runtime) {
		r.validator = validator
	}
}

// WithSubmit sets the finalize handler.
func WithSubmit(submit SubmitFunc) Option {
	return func(r *Runtime) {
		r.submit = submit
	}
}

// WithLogger sets the logger for step transitions and submission failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithScheduler sets the debounce scheduler and window handed to validation
// widgets. A zero window keeps resolver.DefaultDebounceWindow.
func WithScheduler(scheduler resolver.Scheduler, window time.Duration) Option {
	return func(r *Runtime) {
		r.scheduler = scheduler
		r.window = window
	}
}

// Result is returned by Next. Done is set once the final step was submitted
// and Data then holds the merged payload.
type Result struct {
	Step int
	Done bool
	Data map[string]any
}

// StepView is everything a renderer needs to draw the current step.
type StepView struct {
	Index    int
	Total    int
	ID       string
	Title    string
	Heading  string
	Progress string
	Schema   json.RawMessage
	UISchema map[string]map[string]any
	Data     map[string]any
}

// State summarises the runtime. Error holds the last submission failure and
// is cleared by a successful submit.
type State struct {
	Index int
	Total int
	Error error
}

type compiledStep struct {
	step   model.FormStep
	object jsonschema.ObjectSchema
}

// Runtime walks a multi-step form. It is safe for concurrent use; widget
// completions may report values from other goroutines.
type Runtime struct {
	steps     []compiledStep
	registry  *widgets.Registry
	lookup    Lookup
	validator StepValidator
	submit    SubmitFunc
	logger    logrus.FieldLogger
	scheduler resolver.Scheduler
	window    time.Duration

	mu     sync.Mutex
	index  int
	tables []map[string]any
	err    error
}

// New compiles the step schemas and positions the runtime at step 0.
func New(steps []model.FormStep, opts ...Option) (*Runtime, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	r := &Runtime{
		registry: widgets.NewRegistry(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	r.steps = make([]compiledStep, len(steps))
	r.tables = make([]map[string]any, len(steps))
	for idx, step := range steps {
		schema := step.Schema
		if len(schema) == 0 {
			schema = model.EmptyStepSchema
		}
		object, err := jsonschema.ParseObject(schema)
		if err != nil {
			return nil, fmt.Errorf("multistep: step %d: %w", idx, err)
		}
		step.Schema = append(json.RawMessage(nil), schema...)
		r.steps[idx] = compiledStep{step: step, object: object}
		r.tables[idx] = make(map[string]any)
	}
	return r, nil
}

// FromForm builds a runtime for a multi-step form.
func FromForm(form model.FormSchema, opts ...Option) (*Runtime, error) {
	if !form.IsMultiStep {
		return nil, fmt.Errorf("multistep: form %q: %w", form.Title, model.ErrWrongMode)
	}
	return New(form.Steps, opts...)
}

// Total returns the number of steps.
func (r *Runtime) Total() int {
	return len(r.steps)
}

// State returns the current index and the last submission error.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Index: r.index, Total: len(r.steps), Error: r.err}
}

// Step describes the current step.
func (r *Runtime) Step() StepView {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.index
	compiled := r.steps[idx]
	total := len(r.steps)
	progress := fmt.Sprintf("Step %d of %d", idx+1, total)
	heading := compiled.step.Title
	if heading == "" {
		heading = progress
	}
	return StepView{
		Index:    idx,
		Total:    total,
		ID:       compiled.step.ID,
		Title:    compiled.step.Title,
		Heading:  heading,
		Progress: progress,
		Schema:   append(json.RawMessage(nil), compiled.step.Schema...),
		UISchema: r.registry.UISchema(compiled.object.Properties),
		Data:     cloneData(r.tables[idx]),
	}
}

// Properties returns the ordered properties of step i.
func (r *Runtime) Properties(i int) []jsonschema.NamedProperty {
	if i < 0 || i >= len(r.steps) {
		return nil
	}
	return append([]jsonschema.NamedProperty(nil), r.steps[i].object.Properties...)
}

// Required returns the required property names of step i.
func (r *Runtime) Required(i int) []string {
	if i < 0 || i >= len(r.steps) {
		return nil
	}
	return append([]string(nil), r.steps[i].object.Required...)
}

// UISchema derives the widget bindings and placeholders of step i. It returns
// nil for an index out of range.
func (r *Runtime) UISchema(i int) map[string]map[string]any {
	if i < 0 || i >= len(r.steps) {
		return nil
	}
	return r.registry.UISchema(r.steps[i].object.Properties)
}

// StepData returns a copy of the table committed for step i.
func (r *Runtime) StepData(i int) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.tables) {
		return nil, false
	}
	return cloneData(r.tables[i]), true
}

// Change replaces the current step table and applies response mapping.
func (r *Runtime) Change(data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[r.index] = cloneData(data)
	propagate(r.steps[r.index].object, r.tables[r.index])
}

// SetValue writes one field of the current step.
func (r *Runtime) SetValue(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setValueLocked(r.index, name, value)
}

// Clear removes one field of the current step so it counts as absent.
func (r *Runtime) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables[r.index], name)
}

// StoreResponse keeps the record behind a selection under the companion key
// of name. A nil record removes it.
func (r *Runtime) StoreResponse(name string, record map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeResponseLocked(r.index, name, record)
}

func (r *Runtime) setValueLocked(step int, name string, value any) {
	r.tables[step][name] = deepCopy(value)
	propagate(r.steps[step].object, r.tables[step])
}

func (r *Runtime) storeResponseLocked(step int, name string, record map[string]any) {
	if record == nil {
		delete(r.tables[step], ResponseKey(name))
	} else {
		r.tables[step][ResponseKey(name)] = cloneData(record)
	}
	propagate(r.steps[step].object, r.tables[step])
}

// Back moves to the previous step keeping every committed table. It reports
// false at the first step.
func (r *Runtime) Back() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == 0 {
		return false
	}
	r.index--
	r.logger.WithFields(logrus.Fields{"step": r.index, "total": len(r.steps)}).Debug("multistep: back")
	return true
}

// Next commits data for the current step and advances. A nil data keeps the
// table built through Change and the widget hooks. On the final step the
// tables are merged and submitted; a failure keeps the runtime on that step.
func (r *Runtime) Next(ctx context.Context, data map[string]any) (Result, error) {
	r.mu.Lock()
	idx := r.index
	compiled := r.steps[idx]
	if data != nil {
		r.tables[idx] = cloneData(data)
	}
	propagate(compiled.object, r.tables[idx])
	payload := stripCompanions(compiled.object, r.tables[idx])
	r.mu.Unlock()

	if r.validator != nil {
		result, err := r.validator.ValidateStep(ctx, compiled.step.Schema, payload)
		if err != nil {
			return Result{Step: idx}, fmt.Errorf("multistep: validate step %d: %w", idx, err)
		}
		if !result.Valid {
			return Result{Step: idx}, &StepValidationError{Step: idx, Issues: result.Issues}
		}
	}

	if idx < len(r.steps)-1 {
		r.mu.Lock()
		r.index = idx + 1
		r.mu.Unlock()
		r.logger.WithFields(logrus.Fields{"step": idx + 1, "total": len(r.steps)}).Debug("multistep: next")
		return Result{Step: idx + 1}, nil
	}

	return r.finalize(ctx, idx)
}

func (r *Runtime) finalize(ctx context.Context, idx int) (Result, error) {
	r.mu.Lock()
	merged := merge(r.steps, r.tables)
	r.mu.Unlock()

	var err error
	if r.submit == nil {
		err = ErrNoSubmit
	} else {
		err = r.submit(ctx, cloneData(merged))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.err = &SubmissionError{Step: idx, Err: err}
		r.logger.WithFields(logrus.Fields{"step": idx}).WithError(err).Warn("multistep: submission failed")
		return Result{Step: idx}, r.err
	}
	r.err = nil
	r.logger.WithFields(logrus.Fields{"step": idx, "fields": len(merged)}).Debug("multistep: submitted")
	return Result{Step: idx, Done: true, Data: merged}, nil
}

// Widgets builds the widgets bound to the current step. Their value reports
// land in that step's table even if the runtime has moved on meanwhile.
// Options are not loaded; call widgets.LoadAll or Load on each select.
func (r *Runtime) Widgets() widgets.Set {
	r.mu.Lock()
	idx := r.index
	r.mu.Unlock()
	return r.registry.Build(r.steps[idx].object.Properties, widgets.Dependencies{
		Resolver:  r.lookup,
		Validator: r.lookup,
		Reporter:  stepReporter{runtime: r, step: idx},
		Scheduler: r.scheduler,
		Window:    r.window,
	})
}

type stepReporter struct {
	runtime *Runtime
	step    int
}

func (s stepReporter) SetValue(field string, value any) {
	s.runtime.mu.Lock()
	defer s.runtime.mu.Unlock()
	s.runtime.setValueLocked(s.step, field, value)
}

func (s stepReporter) StoreResponse(field string, record map[string]any) {
	s.runtime.mu.Lock()
	defer s.runtime.mu.Unlock()
	s.runtime.storeResponseLocked(s.step, field, record)
}
