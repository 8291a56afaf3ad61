package widgets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/resolver"
)

type recordingReporter struct {
	mu        sync.Mutex
	values    map[string]any
	responses map[string]map[string]any
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{values: map[string]any{}, responses: map[string]map[string]any{}}
}

func (r *recordingReporter) SetValue(field string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[field] = value
}

func (r *recordingReporter) StoreResponse(field string, record map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[field] = record
}

type stubResolver struct {
	options []resolver.Option
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (s *stubResolver) Resolve(ctx context.Context, src *model.ExternalDataSource) ([]resolver.Option, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.options, s.err
}

// gatedValidator blocks each value until released so completions can be
// delivered out of order.
type gatedValidator struct {
	mu    sync.Mutex
	gates map[string]chan resolver.ValidationResult
}

func newGatedValidator(values ...string) *gatedValidator {
	v := &gatedValidator{gates: map[string]chan resolver.ValidationResult{}}
	for _, value := range values {
		v.gates[value] = make(chan resolver.ValidationResult, 1)
	}
	return v
}

func (v *gatedValidator) Validate(ctx context.Context, src *model.ExternalDataSource, value string) (resolver.ValidationResult, error) {
	v.mu.Lock()
	gate := v.gates[value]
	v.mu.Unlock()
	return <-gate, nil
}

func (v *gatedValidator) release(value string, result resolver.ValidationResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gates[value] <- result
}

type funcValidator func(value string) (resolver.ValidationResult, error)

func (f funcValidator) Validate(ctx context.Context, src *model.ExternalDataSource, value string) (resolver.ValidationResult, error) {
	return f(value)
}

type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) resolver.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	return noopTimer{}
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	fns := append([]func(){}, s.fns...)
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var caeOptions = []resolver.Option{
	{Value: "01110", Label: "Cultivo de cereais", Record: map[string]any{"code": "01110", "description": "Cultivo de cereais"}},
	{Value: "01120", Label: "Cultivo de leguminosas", Record: map[string]any{"code": "01120", "description": "Cultivo de leguminosas"}},
}

func TestSelectWidgetLoadAndSelect(t *testing.T) {
	reporter := newRecordingReporter()
	res := &stubResolver{options: caeOptions}
	widget := NewSelectWidget("cae", selectSource(), res, reporter)

	require.NoError(t, widget.Load(context.Background()))
	state := widget.State()
	assert.False(t, state.Loading)
	assert.Len(t, state.Options, 2)

	require.NoError(t, widget.Select("01110"))
	assert.Equal(t, "01110", reporter.values["cae"])
	assert.Equal(t, caeOptions[0].Record, reporter.responses["cae"])
	assert.Equal(t, "01110", widget.State().Value)

	err := widget.Select("99999")
	assert.ErrorIs(t, err, ErrUnknownOption)

	require.NoError(t, widget.Select(""))
	assert.Equal(t, "", reporter.values["cae"])
	assert.Nil(t, reporter.responses["cae"])
}

func TestSelectWidgetKeepsFailure(t *testing.T) {
	res := &stubResolver{err: &resolver.Error{Endpoint: "https://api.example.com/cae", Status: 500, Message: "Internal Server Error"}}
	widget := NewSelectWidget("cae", selectSource(), res, nil)

	err := widget.Load(context.Background())
	require.Error(t, err)
	state := widget.State()
	assert.False(t, state.Loading)
	require.Error(t, state.Err)
	assert.Contains(t, state.Err.Error(), `field "cae"`)
	assert.True(t, errors.Is(state.Err, resolver.ErrResolver))
}

// endpointResolver answers per endpoint; endpoints with a gate block until
// it is closed.
type endpointResolver struct {
	options map[string][]resolver.Option
	gates   map[string]chan struct{}
	calls   atomic.Int32
}

func (e *endpointResolver) Resolve(ctx context.Context, src *model.ExternalDataSource) ([]resolver.Option, error) {
	e.calls.Add(1)
	if gate, ok := e.gates[src.Endpoint]; ok {
		<-gate
	}
	return e.options[src.Endpoint], nil
}

func TestSelectWidgetReloadsOnSourceChangeAndDiscardsStaleLoad(t *testing.T) {
	const other = "https://api.example.com/other"
	res := &endpointResolver{
		options: map[string][]resolver.Option{
			selectSource().Endpoint: caeOptions[:1],
			other:                   caeOptions[1:],
		},
		gates: map[string]chan struct{}{selectSource().Endpoint: make(chan struct{})},
	}
	widget := NewSelectWidget("cae", selectSource(), res, nil)

	done := make(chan struct{})
	go func() {
		_ = widget.Load(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return res.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, widget.State().Loading)

	require.NoError(t, widget.SetSource(context.Background(), &model.ExternalDataSource{Enabled: true, Endpoint: other}))
	state := widget.State()
	assert.Equal(t, caeOptions[1:], state.Options, "a new source loads its own options")
	assert.False(t, state.Loading)

	close(res.gates[selectSource().Endpoint])
	<-done

	assert.Equal(t, caeOptions[1:], widget.State().Options, "result of superseded load must be discarded")
}

func TestSelectWidgetSetSourceUnchangedDoesNotReload(t *testing.T) {
	res := &stubResolver{options: caeOptions}
	widget := NewSelectWidget("cae", selectSource(), res, nil)
	require.NoError(t, widget.Load(context.Background()))

	require.NoError(t, widget.SetSource(context.Background(), selectSource()))
	assert.Equal(t, int32(1), res.calls.Load())
	assert.Equal(t, caeOptions, widget.State().Options)
}

func TestValidationWidgetDebounces(t *testing.T) {
	reporter := newRecordingReporter()
	scheduler := &manualScheduler{}
	var calls []string
	validator := funcValidator(func(value string) (resolver.ValidationResult, error) {
		calls = append(calls, value)
		return resolver.ValidationResult{IsValid: len(value) == 9, Message: "checked " + value}, nil
	})
	widget := NewValidationWidget("nif", validationSource(), validator, reporter, WithDebounce(time.Second, scheduler))

	widget.Change(context.Background(), "123")
	assert.Equal(t, "123", reporter.values["nif"], "value is reported before validation")
	assert.Equal(t, StatusPending, widget.State().Status)

	widget.Change(context.Background(), "123456789")
	scheduler.fireAll()

	assert.Equal(t, []string{"123456789"}, calls)
	assert.Equal(t, ValidationState{Status: StatusValid, Value: "123456789", Message: "checked 123456789"}, widget.State())

	widget.Change(context.Background(), "12")
	assert.True(t, widget.Flush())
	assert.Equal(t, StatusInvalid, widget.State().Status)

	widget.Change(context.Background(), "")
	assert.Equal(t, StatusIdle, widget.State().Status)
	assert.False(t, widget.Flush())
}

func TestValidationWidgetSuppressesStaleResults(t *testing.T) {
	validator := newGatedValidator("123", "123456789")
	scheduler := &manualScheduler{}
	widget := NewValidationWidget("nif", validationSource(), validator, nil, WithDebounce(time.Second, scheduler))

	widget.Change(context.Background(), "123")
	firstDone := make(chan struct{})
	go func() {
		widget.Flush()
		close(firstDone)
	}()

	require.Eventually(t, func() bool { return !widget.debouncer.Pending() }, time.Second, time.Millisecond)
	widget.Change(context.Background(), "123456789")
	validator.release("123456789", resolver.ValidationResult{IsValid: true, Message: "NIF válido"})
	require.True(t, widget.Flush())

	validator.release("123", resolver.ValidationResult{IsValid: false, Message: "NIF inválido"})
	<-firstDone

	assert.Equal(t, ValidationState{Status: StatusValid, Value: "123456789", Message: "NIF válido"}, widget.State())
}

func TestValidationWidgetFailure(t *testing.T) {
	validator := funcValidator(func(string) (resolver.ValidationResult, error) {
		return resolver.ValidationResult{}, &resolver.Error{Endpoint: "https://api.example.com/nif", Message: "request failed"}
	})
	widget := NewValidationWidget("nif", validationSource(), validator, nil, WithDebounce(time.Second, &manualScheduler{}))
	widget.Change(context.Background(), "1")
	widget.Flush()

	state := widget.State()
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, "request failed", state.Message)
	assert.ErrorIs(t, state.Err, resolver.ErrResolver)
}

func TestBuildAndLoadAll(t *testing.T) {
	reg := NewRegistry()
	props := []jsonschema.NamedProperty{
		{Name: "nif", Property: jsonschema.Property{Extensions: jsonschema.Extensions{ValidationExternalSource: validationSource()}}},
		{Name: "cae", Property: jsonschema.Property{Extensions: jsonschema.Extensions{ExternalSource: selectSource()}}},
		{Name: "district", Property: jsonschema.Property{Extensions: jsonschema.Extensions{ExternalSource: selectSource()}}},
		{Name: "plain", Property: jsonschema.Property{}},
	}
	res := &stubResolver{options: caeOptions}
	set := reg.Build(props, Dependencies{Resolver: res, Validator: funcValidator(nil)})

	var names []string
	for _, widget := range set.All() {
		names = append(names, widget.Field()+":"+widget.Name())
	}
	assert.Equal(t, []string{"nif:ExternalValidation", "cae:ExternalSourceSelect", "district:ExternalSourceSelect"}, names)

	LoadAll(context.Background(), set.Selects, 1)
	assert.Equal(t, int32(2), res.calls.Load())
	cae, ok := set.Select("cae")
	require.True(t, ok)
	assert.Len(t, cae.State().Options, 2)
	_, ok = set.Validation("nif")
	assert.True(t, ok)
	_, ok = set.Select("plain")
	assert.False(t, ok)
}
