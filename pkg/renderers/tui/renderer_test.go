package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/multistep"
	"github.com/goliatone/go-formwizard/pkg/resolver"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

// stubDriver replays scripted answers. An empty scripted input behaves like
// pressing enter and returns the prompt default.
type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	selectCfgs   []SelectConfig
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted for " + cfg.Message)
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if val == "" {
		return cfg.Default, nil
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted for " + cfg.Message)
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selectCfgs = append(s.selectCfgs, cfg)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted for " + cfg.Message)
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted for " + cfg.Message)
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) saw(fragment string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

const activityStep = `{
  "type": "object",
  "title": "Activity",
  "properties": {
    "name": { "type": "string", "title": "Name" },
    "cae": {
      "type": "string",
      "title": "CAE",
      "x-externalSource": {
        "enabled": true,
        "endpoint": "https://api.example.com/cae",
        "responseMapping": { "valueField": "code", "labelField": "description" },
        "responseDataMapping": { "activityCode": "code", "activityName": "description" }
      }
    },
    "activityCode": { "type": "string", "title": "Activity code" },
    "activityName": { "type": "string", "title": "Activity name" }
  },
  "required": ["name"]
}`

const detailsStep = `{
  "type": "object",
  "title": "Details",
  "properties": {
    "nif": {
      "type": "string",
      "title": "NIF",
      "x-validation": {
        "externalSource": { "enabled": true, "endpoint": "https://api.example.com/nif", "method": "POST" }
      }
    },
    "age": { "type": "number", "title": "Age", "minimum": 18 },
    "newsletter": { "type": "boolean", "title": "Newsletter" },
    "plan": { "type": "string", "title": "Plan", "enum": ["basic", "pro"], "enumNames": ["Basic", "Pro"] }
  }
}`

type stubLookup struct {
	resolveErr error
}

func (s stubLookup) Resolve(ctx context.Context, src *model.ExternalDataSource) ([]resolver.Option, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return []resolver.Option{
		{Value: "01110", Label: "Cultivo de cereais", Record: map[string]any{"code": "01110", "description": "Cultivo de cereais"}},
		{Value: "01120", Label: "Cultivo de arroz", Record: map[string]any{"code": "01120", "description": "Cultivo de arroz"}},
	}, nil
}

func (stubLookup) Validate(ctx context.Context, src *model.ExternalDataSource, value string) (resolver.ValidationResult, error) {
	if value == "123" {
		return resolver.ValidationResult{IsValid: false, Message: "NIF inválido"}, nil
	}
	return resolver.ValidationResult{IsValid: true}, nil
}

func newRuntime(t *testing.T, lookup stubLookup, submit multistep.SubmitFunc) *multistep.Runtime {
	t.Helper()
	rt, err := multistep.New([]model.FormStep{
		{ID: "activity", Title: "Activity", Schema: json.RawMessage(activityStep)},
		{ID: "details", Title: "Details", Schema: json.RawMessage(detailsStep)},
	},
		multistep.WithResolver(lookup),
		multistep.WithValidator(validation.NewValidator()),
		multistep.WithSubmit(submit),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt
}

func decode(t *testing.T, out []byte) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return got
}

func TestFill_WalksStepsAndRevisitsInvalidStep(t *testing.T) {
	var submitted map[string]any
	rt := newRuntime(t, stubLookup{}, func(_ context.Context, data map[string]any) error {
		submitted = data
		return nil
	})

	driver := &stubDriver{
		inputs: []string{
			"Ana",              // name
			"",                 // activityCode keeps the mapped value
			"",                 // activityName keeps the mapped value
			"123", "999999990", // nif rejected, then accepted
			"abc", "17", // age: not a number, then below minimum
			"",   // nif again, keeps the accepted value
			"30", // age
		},
		selectIdx: []int{0, 1, 1},
		confirm:   []bool{true, true},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := r.Fill(context.Background(), rt)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := map[string]any{
		"name":         "Ana",
		"cae":          "01110",
		"activityCode": "01110",
		"activityName": "Cultivo de cereais",
		"nif":          "999999990",
		"age":          30.0,
		"newsletter":   true,
		"plan":         "pro",
	}
	if diff := cmp.Diff(want, decode(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, submitted); diff != "" {
		t.Fatalf("submitted mismatch (-want +got):\n%s", diff)
	}

	for _, fragment := range []string{"Activity (Step 1 of 2)", "Invalid nif: NIF inválido", "Invalid age: not a number", "Invalid age:"} {
		if !driver.saw(fragment) {
			t.Errorf("expected info containing %q, got %v", fragment, driver.infoMessages)
		}
	}
	if got := driver.selectCfgs[0].Options; !cmp.Equal(got, []string{"Cultivo de cereais", "Cultivo de arroz", skipOption}) {
		t.Fatalf("unexpected select options: %v", got)
	}
	if got := driver.selectCfgs[1].Options; !cmp.Equal(got, []string{"Basic", "Pro", skipOption}) {
		t.Fatalf("unexpected enum options: %v", got)
	}
}

func TestFill_OptionFailureFallsBackToInput(t *testing.T) {
	rt := newRuntime(t, stubLookup{resolveErr: &resolver.Error{Message: "service unavailable"}}, func(context.Context, map[string]any) error {
		return nil
	})
	driver := &stubDriver{
		inputs:    []string{"Ana", "01110", "", "", "", ""},
		selectIdx: []int{2},
		confirm:   []bool{false},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := r.Fill(context.Background(), rt)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	want := map[string]any{"name": "Ana", "cae": "01110", "newsletter": false}
	if diff := cmp.Diff(want, decode(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if !driver.saw("Options for CAE unavailable") {
		t.Fatalf("expected fallback notice, got %v", driver.infoMessages)
	}
}

func TestFill_SubmissionRetry(t *testing.T) {
	attempts := 0
	rt := newRuntime(t, stubLookup{}, func(context.Context, map[string]any) error {
		attempts++
		if attempts == 1 {
			return errors.New("503 from forms API")
		}
		return nil
	})
	driver := &stubDriver{
		inputs:    []string{"Ana", "", "", "", ""},
		selectIdx: []int{2, 2},
		confirm:   []bool{false, true},
	}
	r, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := r.Fill(context.Background(), rt)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 submit attempts, got %d", attempts)
	}
	if got := string(out); got != "name=Ana\nnewsletter=false\n" {
		t.Fatalf("unexpected pretty output %q", got)
	}
	if !driver.saw("Submission failed: 503 from forms API") {
		t.Fatalf("expected failure notice, got %v", driver.infoMessages)
	}
}

func TestFill_SubmissionAbandoned(t *testing.T) {
	boom := errors.New("boom")
	rt := newRuntime(t, stubLookup{}, func(context.Context, map[string]any) error { return boom })
	driver := &stubDriver{
		inputs:    []string{"Ana", "", "", "", ""},
		selectIdx: []int{2, 2},
		confirm:   []bool{false, false},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	_, err = r.Fill(context.Background(), rt)
	if !errors.Is(err, boom) {
		t.Fatalf("expected submit error, got %v", err)
	}
	var submitErr *multistep.SubmissionError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmissionError, got %T", err)
	}
	if rt.State().Index != 1 {
		t.Fatalf("runtime should stay on the last step, got %d", rt.State().Index)
	}
}

func TestFill_BackNavigation(t *testing.T) {
	rt := newRuntime(t, stubLookup{}, func(context.Context, map[string]any) error { return nil })
	driver := &stubDriver{
		inputs: []string{
			"Ana", "", "", // step 1
			"", "", // step 2: nif, age skipped
			"Bea", "", "", // step 1 again
			"", "", // step 2 again
		},
		// cae skip, plan skip, Back, cae skip, plan skip, Continue
		selectIdx: []int{2, 2, 1, 2, 2, 0},
		confirm:   []bool{false, false},
	}
	r, err := New(WithPromptDriver(driver), WithBackNavigation(true))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := r.Fill(context.Background(), rt)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	want := map[string]any{"name": "Bea", "newsletter": false}
	if diff := cmp.Diff(want, decode(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_Aborted(t *testing.T) {
	rt := newRuntime(t, stubLookup{}, nil)
	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, err := r.Fill(context.Background(), rt); err == nil {
		t.Fatalf("expected error when the driver runs out of answers")
	}
	if _, err := r.Fill(context.Background(), nil); !errors.Is(err, ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Fill(ctx, rt); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSerializeFormats(t *testing.T) {
	values := map[string]any{"name": "Ana", "tags": []any{"a", "b"}, "address": map[string]any{"city": "Lisboa"}}

	r := &Renderer{outputFormat: OutputFormatFormURLEncoded}
	out, err := r.serialize(values)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if got := string(out); got != "address.city=Lisboa&name=Ana&tags%5B%5D=a&tags%5B%5D=b" {
		t.Fatalf("unexpected form output %q", got)
	}
	if r.ContentType() != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", r.ContentType())
	}

	r.outputFormat = OutputFormatPrettyText
	out, _ = r.serialize(values)
	if got := string(out); got != "address.city=Lisboa\nname=Ana\ntags[0]=a\ntags[1]=b\n" {
		t.Fatalf("unexpected pretty output %q", got)
	}

	if _, err := New(WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
