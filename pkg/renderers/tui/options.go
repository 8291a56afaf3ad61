package tui

import (
	"github.com/sirupsen/logrus"
)

// OutputFormat names the serialization Fill returns.
type OutputFormat string

const (
	OutputFormatJSON           OutputFormat = "json"
	OutputFormatFormURLEncoded OutputFormat = "form"
	OutputFormatPrettyText     OutputFormat = "pretty"
)

var contentTypes = map[OutputFormat]string{
	OutputFormatJSON:           "application/json",
	OutputFormatFormURLEncoded: "application/x-www-form-urlencoded",
	OutputFormatPrettyText:     "text/plain",
}

// ParseOutputFormat maps a flag value onto an OutputFormat. Empty means JSON.
func ParseOutputFormat(raw string) (OutputFormat, bool) {
	if raw == "" {
		return OutputFormatJSON, true
	}
	format := OutputFormat(raw)
	_, ok := contentTypes[format]
	return format, ok
}

// Theme prefixes notices and problems printed between prompts.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// SubmitTransformer rewrites the submitted payload before it is serialized.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures the renderer.
type Option func(*Renderer)

// WithPromptDriver replaces the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat picks the serialization; New rejects unknown values.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithSubmitTransformer sets a hook run on the merged payload.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}

func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithBackNavigation asks after every step past the first whether to go on
// or return to the previous step.
func WithBackNavigation(enabled bool) Option {
	return func(r *Renderer) {
		r.allowBack = enabled
	}
}

// WithLoadLimit bounds concurrent option loads per step.
func WithLoadLimit(limit int) Option {
	return func(r *Renderer) {
		if limit > 0 {
			r.loadLimit = limit
		}
	}
}

// WithLogger sets where option load failures are logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
