package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/jsonschema"
	"github.com/goliatone/go-formwizard/pkg/multistep"
	"github.com/goliatone/go-formwizard/pkg/widgets"
)

const (
	navContinue = "Continue"
	navBack     = "Back"
	skipOption  = "(skip)"
)

// Renderer walks a multi-step runtime in the terminal, one prompt per
// property, and returns the submitted payload.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	allowBack         bool
	loadLimit         int
	logger            logrus.FieldLogger
}

// New constructs a renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		loadLimit:    widgets.DefaultLoadLimit,
		logger:       logging.Discard(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	if _, ok := ParseOutputFormat(string(r.outputFormat)); !ok {
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// ContentType reports the serialization format used by Fill.
func (r *Renderer) ContentType() string {
	return contentTypes[r.outputFormat]
}

// Fill prompts for every step of rt until the final step is submitted.
// Invalid steps are shown again with their issues; a failed submission can be
// retried or abandoned, in which case its error is returned.
func (r *Renderer) Fill(ctx context.Context, rt *multistep.Runtime) ([]byte, error) {
	if rt == nil {
		return nil, ErrNoRuntime
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view := rt.Step()
		r.info(ctx, view.Heading+headingSuffix(view))
		if err := r.fillStep(ctx, rt, view.Index); err != nil {
			return nil, err
		}

		if r.allowBack && view.Index > 0 {
			idx, err := r.driver.Select(ctx, SelectConfig{
				Message: "Next",
				Options: []string{navContinue, navBack},
			})
			if err != nil {
				return nil, err
			}
			if idx == 1 {
				rt.Back()
				continue
			}
		}

		result, err := r.advance(ctx, rt)
		var stepErr *multistep.StepValidationError
		switch {
		case errors.As(err, &stepErr):
			for _, issue := range stepErr.Issues {
				r.fail(ctx, fmt.Sprintf("Invalid %s: %s", issueField(issue.Field), issue.Message))
			}
			continue
		case err != nil:
			return nil, err
		}
		if !result.Done {
			continue
		}

		values := result.Data
		if r.submitTransformer != nil {
			values, err = r.submitTransformer(values)
			if err != nil {
				return nil, fmt.Errorf("tui: submit transformer: %w", err)
			}
		}
		return r.serialize(values)
	}
}

// advance commits the current step and offers a retry while submission fails.
func (r *Renderer) advance(ctx context.Context, rt *multistep.Runtime) (multistep.Result, error) {
	for {
		result, err := rt.Next(ctx, nil)
		var submitErr *multistep.SubmissionError
		if !errors.As(err, &submitErr) {
			return result, err
		}
		r.fail(ctx, fmt.Sprintf("Submission failed: %v", submitErr.Err))
		retry, promptErr := r.driver.Confirm(ctx, ConfirmConfig{Message: "Retry submission?", Default: true})
		if promptErr != nil {
			return result, promptErr
		}
		if !retry {
			return result, err
		}
	}
}

func headingSuffix(view multistep.StepView) string {
	if view.Title == "" {
		return ""
	}
	return " (" + view.Progress + ")"
}

func issueField(field string) string {
	if field == "" {
		return "form"
	}
	return field
}

func (r *Renderer) fillStep(ctx context.Context, rt *multistep.Runtime, step int) error {
	required := rt.Required(step)
	set := rt.Widgets()
	widgets.LoadAll(ctx, set.Selects, r.loadLimit)

	for _, prop := range rt.Properties(step) {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, _ := rt.StepData(step)
		current, has := data[prop.Name]
		isRequired := slices.Contains(required, prop.Name)

		var err error
		if sel, ok := set.Select(prop.Name); ok {
			err = r.promptSelect(ctx, rt, prop, sel, current, isRequired)
		} else if check, ok := set.Validation(prop.Name); ok {
			err = r.promptValidated(ctx, rt, prop, check, current, isRequired)
		} else {
			err = r.promptValue(ctx, rt, prop, current, has, isRequired)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptSelect(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, sel *widgets.SelectWidget, current any, required bool) error {
	state := sel.State()
	if state.Err != nil {
		r.fail(ctx, fmt.Sprintf("Options for %s unavailable: %v", displayLabel(prop), state.Err))
		r.logger.WithError(state.Err).WithField("field", prop.Name).Warn("tui: option load failed")
		return r.promptValue(ctx, rt, prop, current, current != nil, required)
	}

	labels := make([]string, 0, len(state.Options)+1)
	values := make([]string, 0, len(state.Options)+1)
	for _, option := range state.Options {
		labels = append(labels, option.Label)
		values = append(values, option.Value)
	}
	if !required {
		labels = append(labels, skipOption)
		values = append(values, "")
	}
	if len(labels) == 0 {
		r.fail(ctx, fmt.Sprintf("No options for %s", displayLabel(prop)))
		return r.promptValue(ctx, rt, prop, current, current != nil, required)
	}

	defaultIdx := -1
	if s, ok := current.(string); ok && s != "" {
		defaultIdx = slices.Index(values, s)
	}
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      displayLabel(prop),
			Options:      labels,
			DefaultIndex: defaultIdx,
			Help:         displayHelp(prop),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(values) {
			r.fail(ctx, fmt.Sprintf("Invalid %s selection", prop.Name))
			continue
		}
		if err := sel.Select(values[idx]); err != nil {
			r.fail(ctx, fmt.Sprintf("Invalid %s: %v", prop.Name, err))
			continue
		}
		if values[idx] == "" {
			rt.Clear(prop.Name)
		}
		return nil
	}
}

func (r *Renderer) promptValidated(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, check *widgets.ValidationWidget, current any, required bool) error {
	def := stringValue(current, prop.Default)
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message:     displayLabel(prop),
			Default:     def,
			Help:        displayHelp(prop),
			Placeholder: prop.Placeholder,
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if required {
				r.fail(ctx, fmt.Sprintf("Invalid %s: required", prop.Name))
				continue
			}
			check.Change(ctx, "")
			rt.Clear(prop.Name)
			return nil
		}

		check.Change(ctx, input)
		check.Flush()
		state := check.State()
		switch state.Status {
		case widgets.StatusInvalid:
			msg := state.Message
			if msg == "" {
				msg = "rejected"
			}
			r.fail(ctx, fmt.Sprintf("Invalid %s: %s", prop.Name, msg))
			def = input
			continue
		case widgets.StatusFailed:
			r.fail(ctx, fmt.Sprintf("Could not validate %s: %s", prop.Name, state.Message))
		case widgets.StatusValid:
			if state.Message != "" {
				r.info(ctx, state.Message)
			}
		}
		return nil
	}
}

func (r *Renderer) promptValue(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, current any, has bool, required bool) error {
	switch {
	case prop.Type == "boolean":
		def, _ := current.(bool)
		if !has {
			def, _ = prop.Default.(bool)
		}
		resp, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: displayLabel(prop),
			Default: def,
			Help:    displayHelp(prop),
		})
		if err != nil {
			return err
		}
		rt.SetValue(prop.Name, resp)
		return nil
	case len(prop.Enum) > 0:
		return r.promptEnum(ctx, rt, prop, current, required)
	case prop.Type == "number" || prop.Type == "integer":
		return r.promptNumber(ctx, rt, prop, current, required)
	case prop.Type == "array" || prop.Type == "object":
		return r.promptJSON(ctx, rt, prop, current, required)
	default:
		return r.promptString(ctx, rt, prop, current, required)
	}
}

func (r *Renderer) promptString(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, current any, required bool) error {
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message:     displayLabel(prop),
			Default:     stringValue(current, prop.Default),
			Help:        displayHelp(prop),
			Placeholder: prop.Placeholder,
		})
		if err != nil {
			return err
		}
		if input == "" {
			if required {
				r.fail(ctx, fmt.Sprintf("Invalid %s: required", prop.Name))
				continue
			}
			rt.Clear(prop.Name)
			return nil
		}
		rt.SetValue(prop.Name, input)
		return nil
	}
}

func (r *Renderer) promptNumber(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, current any, required bool) error {
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message:     displayLabel(prop),
			Default:     stringValue(current, prop.Default),
			Help:        displayHelp(prop),
			Placeholder: prop.Placeholder,
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if required {
				r.fail(ctx, fmt.Sprintf("Invalid %s: required", prop.Name))
				continue
			}
			rt.Clear(prop.Name)
			return nil
		}
		parsed, err := strconv.ParseFloat(input, 64)
		if err != nil {
			r.fail(ctx, fmt.Sprintf("Invalid %s: not a number", prop.Name))
			continue
		}
		rt.SetValue(prop.Name, parsed)
		return nil
	}
}

func (r *Renderer) promptEnum(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, current any, required bool) error {
	options := enumLabels(prop)
	values := append([]any(nil), prop.Enum...)
	if !required {
		options = append(options, skipOption)
		values = append(values, nil)
	}
	defaultIdx := -1
	if current != nil {
		for idx, value := range values {
			if value != nil && fmt.Sprint(value) == fmt.Sprint(current) {
				defaultIdx = idx
				break
			}
		}
	}
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      displayLabel(prop),
			Options:      options,
			DefaultIndex: defaultIdx,
			Help:         displayHelp(prop),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(values) {
			r.fail(ctx, fmt.Sprintf("Invalid %s selection", prop.Name))
			continue
		}
		if values[idx] == nil {
			rt.Clear(prop.Name)
			return nil
		}
		rt.SetValue(prop.Name, values[idx])
		return nil
	}
}

func (r *Renderer) promptJSON(ctx context.Context, rt *multistep.Runtime, prop jsonschema.NamedProperty, current any, required bool) error {
	def := ""
	if current != nil {
		if encoded, err := json.Marshal(current); err == nil {
			def = string(encoded)
		}
	}
	for {
		input, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: displayLabel(prop) + " (JSON)",
			Default: def,
			Help:    displayHelp(prop),
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if required {
				r.fail(ctx, fmt.Sprintf("Invalid %s: required", prop.Name))
				continue
			}
			rt.Clear(prop.Name)
			return nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(input), &parsed); err != nil {
			r.fail(ctx, fmt.Sprintf("Invalid %s: %v", prop.Name, err))
			continue
		}
		rt.SetValue(prop.Name, parsed)
		return nil
	}
}

func (r *Renderer) info(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) fail(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return jsonBytes(values)
	}
}

func displayLabel(prop jsonschema.NamedProperty) string {
	if prop.Title != "" {
		return prop.Title
	}
	return prop.Name
}

func displayHelp(prop jsonschema.NamedProperty) string {
	return prop.Description
}

func enumLabels(prop jsonschema.NamedProperty) []string {
	out := make([]string, len(prop.Enum))
	for idx, value := range prop.Enum {
		if idx < len(prop.EnumNames) && prop.EnumNames[idx] != "" {
			out[idx] = prop.EnumNames[idx]
			continue
		}
		out[idx] = fmt.Sprint(value)
	}
	return out
}

func stringValue(current, def any) string {
	value := current
	if value == nil {
		value = def
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			next := fmt.Sprintf("%s[%d]", prefix, idx)
			writePretty(b, next, val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func jsonBytes(values map[string]any) ([]byte, error) {
	return json.Marshal(values)
}
