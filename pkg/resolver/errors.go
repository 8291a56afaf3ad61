package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResolver matches every *Error returned by the resolver.
var ErrResolver = errors.New("resolver: lookup failed")

// Error describes a failed lookup or validation call. Message is safe to show
// next to the field.
type Error struct {
	Field    string
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("resolver: ")
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	if e.Endpoint != "" {
		b.WriteString(e.Endpoint)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrResolver for every instance.
func (e *Error) Is(target error) bool {
	return target == ErrResolver
}

// WithField returns a copy of err naming the field, when err is an *Error.
func WithField(err error, field string) error {
	var resolverErr *Error
	if !errors.As(err, &resolverErr) {
		return err
	}
	clone := *resolverErr
	clone.Field = field
	return &clone
}
