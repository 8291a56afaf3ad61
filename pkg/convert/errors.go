package convert

import "github.com/goliatone/go-formwizard/pkg/jsonschema"

// MalformedInputError reports an input that violates the minimal shape of a
// form document. Path is a JSON pointer to the offending node.
type MalformedInputError = jsonschema.MalformedError

var (
	// ErrMalformedInput matches every MalformedInputError.
	ErrMalformedInput = jsonschema.ErrMalformed
	// ErrConversionMismatch matches documents that are neither a flat form nor
	// a multi-step envelope. It also matches ErrMalformedInput.
	ErrConversionMismatch = jsonschema.ErrShapeMismatch
)

func mismatchError(path, reason string) error {
	return &MalformedInputError{Path: path, Reason: reason, Mismatch: true}
}

func malformedError(path, reason string) error {
	return &MalformedInputError{Path: path, Reason: reason}
}
