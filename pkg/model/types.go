package model

import "encoding/json"

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// FieldFormat narrows string fields. The empty value means no format.
type FieldFormat string

const (
	FieldFormatNone     FieldFormat = ""
	FieldFormatDate     FieldFormat = "date"
	FieldFormatDateTime FieldFormat = "date-time"
	FieldFormatEmail    FieldFormat = "email"
	FieldFormatURI      FieldFormat = "uri"
	FieldFormatRegex    FieldFormat = "regex"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// ResponseMapping names the keys read from each item of a resolved response.
type ResponseMapping struct {
	ValueField string `json:"valueField" mapstructure:"valueField"`
	LabelField string `json:"labelField" mapstructure:"labelField"`
}

// ExternalDataSource describes a remote lookup. The same shape populates
// select options (x-externalSource) and backs delegated validation
// (x-validation.externalSource). JSON tags are the wire vocabulary.
type ExternalDataSource struct {
	Enabled             bool              `json:"enabled" mapstructure:"enabled"`
	Endpoint            string            `json:"endpoint" mapstructure:"endpoint"`
	Method              string            `json:"method" mapstructure:"method"`
	AuthKey             string            `json:"authKey,omitempty" mapstructure:"authKey"`
	Headers             map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	RequestParams       map[string]string `json:"requestParams,omitempty" mapstructure:"requestParams"`
	ResponseMapping     *ResponseMapping  `json:"responseMapping,omitempty" mapstructure:"responseMapping"`
	ResponseDataMapping map[string]string `json:"responseDataMapping,omitempty" mapstructure:"responseDataMapping"`
}

// Active reports whether the source should trigger lookups.
func (s *ExternalDataSource) Active() bool {
	return s != nil && s.Enabled && s.Endpoint != ""
}

// Clone returns a deep copy.
func (s *ExternalDataSource) Clone() *ExternalDataSource {
	if s == nil {
		return nil
	}
	out := *s
	out.Headers = cloneStringMap(s.Headers)
	out.RequestParams = cloneStringMap(s.RequestParams)
	out.ResponseDataMapping = cloneStringMap(s.ResponseDataMapping)
	if s.ResponseMapping != nil {
		mapping := *s.ResponseMapping
		out.ResponseMapping = &mapping
	}
	return &out
}

// Validation bundles the constraints a field can carry. Bounds are pointers so
// an explicit zero survives a round trip.
type Validation struct {
	Pattern        string              `json:"pattern,omitempty"`
	Min            *float64            `json:"min,omitempty"`
	Max            *float64            `json:"max,omitempty"`
	MinLength      *int                `json:"minLength,omitempty"`
	MaxLength      *int                `json:"maxLength,omitempty"`
	ExternalSource *ExternalDataSource `json:"externalSource,omitempty"`
}

// IsZero reports whether no constraint is set.
func (v *Validation) IsZero() bool {
	if v == nil {
		return true
	}
	return v.Pattern == "" && v.Min == nil && v.Max == nil &&
		v.MinLength == nil && v.MaxLength == nil && v.ExternalSource == nil
}

// Option is one entry of an enumerable field. Order is significant. Numeric
// values are float64, as encoding/json decodes them; AddField and UpdateField
// convert other number types (see NormalizeValue).
type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// FormField models one editable input of a flat form or of a step. A numeric
// Default is float64 after conversion from JSON Schema.
type FormField struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Type           FieldType           `json:"type"`
	Format         FieldFormat         `json:"format,omitempty"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Placeholder    string              `json:"placeholder,omitempty"`
	Default        any                 `json:"default,omitempty"`
	Required       bool                `json:"required,omitempty"`
	Options        []Option            `json:"options,omitempty"`
	Validation     *Validation         `json:"validation,omitempty"`
	ExternalSource *ExternalDataSource `json:"externalSource,omitempty"`
}

// FormStep is one page of a multi-step form. Schema holds the step's object
// schema as-is; it is only decomposed into fields when a step is edited.
type FormStep struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Schema json.RawMessage `json:"schema"`
}

// FormSchema is the root of the internal form model. Exactly one of Fields
// (flat mode) or Steps (multi-step mode) is active, selected by IsMultiStep.
type FormSchema struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	IsMultiStep bool        `json:"isMultiStep"`
	Fields      []FormField `json:"fields,omitempty"`
	Steps       []FormStep  `json:"steps,omitempty"`
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
