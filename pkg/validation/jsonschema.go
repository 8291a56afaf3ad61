package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// SchemaIssue represents a validation error with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures validation outcomes for a step payload or a
// form lint.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// Validator checks step data against the step's object schema. Extension
// keywords are ignored; only standard keywords constrain the data.
type Validator struct {
	options []openapi3.SchemaValidationOption
}

// ValidatorOption customises a Validator.
type ValidatorOption func(*Validator)

// WithSchemaOptions appends kin-openapi visit options.
func WithSchemaOptions(opts ...openapi3.SchemaValidationOption) ValidatorOption {
	return func(v *Validator) {
		v.options = append(v.options, opts...)
	}
}

// NewValidator returns a validator that reports every issue, not just the
// first one.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{options: []openapi3.SchemaValidationOption{openapi3.MultiErrors()}}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// ValidateStep validates data against schema. The error return is reserved for
// a schema that cannot be decoded; data problems come back as issues.
func (v *Validator) ValidateStep(ctx context.Context, schema json.RawMessage, data map[string]any) (SchemaValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return SchemaValidationResult{}, err
	}
	result := SchemaValidationResult{Valid: true}
	if len(schema) == 0 {
		return result, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return SchemaValidationResult{}, fmt.Errorf("validation: decode schema: %w", err)
	}
	expandBooleanSchemas(doc)
	expanded, err := json.Marshal(doc)
	if err != nil {
		return SchemaValidationResult{}, fmt.Errorf("validation: encode schema: %w", err)
	}
	var compiled openapi3.Schema
	if err := json.Unmarshal(expanded, &compiled); err != nil {
		return SchemaValidationResult{}, fmt.Errorf("validation: decode schema: %w", err)
	}

	value, err := normalize(data)
	if err != nil {
		return SchemaValidationResult{}, err
	}

	visitErr := compiled.VisitJSON(value, v.options...)
	if visitErr == nil {
		return result, nil
	}
	result.Valid = false
	result.Issues = issuesFromError(visitErr)
	return result, nil
}

// expandBooleanSchemas rewrites true and false subschemas under properties and
// items into their object forms, which openapi3.Schema can decode.
func expandBooleanSchemas(node map[string]any) {
	if props, ok := node["properties"].(map[string]any); ok {
		for name, sub := range props {
			props[name] = expandSubschema(sub)
		}
	}
	if items, ok := node["items"]; ok {
		node["items"] = expandSubschema(items)
	}
}

func expandSubschema(sub any) any {
	switch v := sub.(type) {
	case bool:
		if v {
			return map[string]any{}
		}
		return map[string]any{"not": map[string]any{}}
	case map[string]any:
		expandBooleanSchemas(v)
	}
	return sub
}

// normalize turns data into the shape encoding/json produces so numbers and
// nested maps match what the schema visitor expects.
func normalize(data map[string]any) (any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("validation: encode data: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("validation: decode data: %w", err)
	}
	return out, nil
}

func issuesFromError(err error) []SchemaIssue {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		issues := make([]SchemaIssue, 0, len(multi))
		for _, item := range multi {
			issues = append(issues, issuesFromError(item)...)
		}
		return issues
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		pointer := schemaErr.JSONPointer()
		path := "#"
		if len(pointer) > 0 {
			escaped := make([]string, len(pointer))
			for i, segment := range pointer {
				segment = strings.ReplaceAll(segment, "~", "~0")
				escaped[i] = strings.ReplaceAll(segment, "/", "~1")
			}
			path = "#/" + strings.Join(escaped, "/")
		}
		return []SchemaIssue{{
			Path:    path,
			Field:   strings.Join(pointer, "."),
			Message: strings.TrimSpace(schemaErr.Reason),
		}}
	}

	return []SchemaIssue{{Message: strings.TrimSpace(err.Error())}}
}
