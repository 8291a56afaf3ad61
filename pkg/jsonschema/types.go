package jsonschema

import (
	"encoding/json"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// Extension keys understood by the converter and the runtime.
const (
	KeyExternalSource = "x-externalSource"
	KeyValidation     = "x-validation"
)

// Extensions is the tagged extension bag of a property. Only the two defined
// extension keys are represented; unknown x- keys are dropped on the flat path.
type Extensions struct {
	ExternalSource           *model.ExternalDataSource
	ValidationExternalSource *model.ExternalDataSource
}

// Property is one entry of an object schema's properties. Field order matches
// the emitted key order.
type Property struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Default     any        `json:"default,omitempty"`
	Format      string     `json:"format,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
	Pattern     string     `json:"pattern,omitempty"`
	Minimum     *float64   `json:"minimum,omitempty"`
	Maximum     *float64   `json:"maximum,omitempty"`
	MinLength   *int       `json:"minLength,omitempty"`
	MaxLength   *int       `json:"maxLength,omitempty"`
	Enum        []any      `json:"enum,omitempty"`
	EnumNames   []string   `json:"enumNames,omitempty"`
	Extensions  Extensions `json:"-"`
}

// NamedProperty pairs a property with its key so order can be preserved.
type NamedProperty struct {
	Name string
	Property
}

// ObjectSchema is a flat object schema: one property per form field.
type ObjectSchema struct {
	ID          string
	Title       string
	Description string
	Properties  []NamedProperty
	Required    []string
}

// Property returns the property with the given key.
func (o ObjectSchema) Property(name string) (Property, bool) {
	for _, prop := range o.Properties {
		if prop.Name == name {
			return prop.Property, true
		}
	}
	return Property{}, false
}

// Step is one entry of a multi-step envelope. Schema is kept verbatim.
type Step struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Schema json.RawMessage `json:"schema"`
}

// MultiStepEnvelope is the wire shape of a multi-step form. It never carries
// top-level properties.
type MultiStepEnvelope struct {
	ID          string
	Title       string
	Description string
	Steps       []Step
}

// Document is either a flat object schema or a multi-step envelope.
type Document struct {
	Object    *ObjectSchema
	MultiStep *MultiStepEnvelope
}

// IsMultiStep reports whether the document is an envelope.
func (d Document) IsMultiStep() bool {
	return d.MultiStep != nil
}
