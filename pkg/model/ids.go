package model

import (
	"strings"

	"github.com/google/uuid"
)

// fieldNamespace scopes the name-based ids derived during import.
var fieldNamespace = uuid.MustParse("8f0d5c3e-2a41-4b7e-9c55-6e0b1f7a2d94")

// NewFieldID returns a random identifier for a field created in the editor.
func NewFieldID() string {
	return uuid.NewString()
}

// DeterministicFieldID derives a stable identifier for a field reconstructed
// from JSON Schema. The same form id and property name always yield the same
// value.
func DeterministicFieldID(formID, name string) string {
	return uuid.NewSHA1(fieldNamespace, []byte(formID+"/"+name)).String()
}

// DeterministicFormID derives a form identifier from its title when the
// imported document carries no $id.
func DeterministicFormID(title string) string {
	return uuid.NewSHA1(fieldNamespace, []byte("form:"+strings.TrimSpace(title))).String()
}
