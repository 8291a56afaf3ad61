package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/goliatone/go-formwizard/pkg/model"
)

type validationExtension struct {
	ExternalSource *model.ExternalDataSource `json:"externalSource,omitempty"`
}

type propertyAlias Property

type wireProperty struct {
	propertyAlias
	Validation     *validationExtension      `json:"x-validation,omitempty"`
	ExternalSource *model.ExternalDataSource `json:"x-externalSource,omitempty"`
}

// MarshalJSON emits the core keywords followed by the extension keys.
func (p Property) MarshalJSON() ([]byte, error) {
	out := wireProperty{propertyAlias: propertyAlias(p)}
	if p.Extensions.ValidationExternalSource != nil {
		out.Validation = &validationExtension{ExternalSource: p.Extensions.ValidationExternalSource}
	}
	out.ExternalSource = p.Extensions.ExternalSource
	return json.Marshal(out)
}

// MarshalJSON emits properties in slice order; encoding/json would sort a map.
func (o ObjectSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object"`)
	if o.ID != "" {
		if err := writeMember(&buf, "$id", o.ID); err != nil {
			return nil, err
		}
	}
	if o.Title != "" {
		if err := writeMember(&buf, "title", o.Title); err != nil {
			return nil, err
		}
	}
	if o.Description != "" {
		if err := writeMember(&buf, "description", o.Description); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`,"properties":{`)
	for idx, prop := range o.Properties {
		if idx > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Property)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	if len(o.Required) > 0 {
		if err := writeMember(&buf, "required", o.Required); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type wireEnvelope struct {
	IsMultiStep bool   `json:"isMultiStep"`
	ID          string `json:"$id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// MarshalJSON emits the envelope with isMultiStep set.
func (e MultiStepEnvelope) MarshalJSON() ([]byte, error) {
	steps := e.Steps
	if steps == nil {
		steps = []Step{}
	}
	return json.Marshal(wireEnvelope{
		IsMultiStep: true,
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Steps:       steps,
	})
}

// MarshalJSON emits whichever shape the document holds.
func (d Document) MarshalJSON() ([]byte, error) {
	switch {
	case d.MultiStep != nil:
		return json.Marshal(d.MultiStep)
	case d.Object != nil:
		return json.Marshal(d.Object)
	default:
		return nil, errors.New("jsonschema: empty document")
	}
}

// Indent renders the document as indented JSON for export.
func (d Document) Indent() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.WriteString(`,"`)
	buf.WriteString(key)
	buf.WriteString(`":`)
	buf.Write(encoded)
	return nil
}
