package jsonschema

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed matches every shape error raised while parsing a document.
	ErrMalformed = errors.New("jsonschema: malformed input")
	// ErrShapeMismatch matches documents that are neither a flat object schema
	// nor a valid multi-step envelope. It also matches ErrMalformed.
	ErrShapeMismatch = errors.New("jsonschema: document is neither an object schema nor a multi-step envelope")
)

// MalformedError carries the JSON pointer of the offending node.
type MalformedError struct {
	Path     string
	Reason   string
	Mismatch bool
	Err      error
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("jsonschema: %s at %s", e.Reason, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is reports ErrMalformed for every instance and ErrShapeMismatch for
// mismatched documents.
func (e *MalformedError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return true
	case ErrShapeMismatch:
		return e.Mismatch
	default:
		return false
	}
}

func malformed(path, format string, args ...any) *MalformedError {
	return &MalformedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func mismatch(path, format string, args ...any) *MalformedError {
	err := malformed(path, format, args...)
	err.Mismatch = true
	return err
}
