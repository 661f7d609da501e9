package descriptor

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ParseError reports a descriptor whose bytes are not well-formed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", displayName(e.Path), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a well-formed descriptor that violates the schema.
// Errs holds every violation found, not just the first.
type SchemaError struct {
	Path string
	Errs field.ErrorList
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %v", displayName(e.Path), e.Errs.ToAggregate())
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *SchemaError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errs))
	for _, fe := range e.Errs {
		errs = append(errs, fe)
	}

	return errs
}

// ReferenceReason says why a file reference could not be used.
type ReferenceReason string

const (
	ReasonNotFound      ReferenceReason = "not found"
	ReasonIsDirectory   ReferenceReason = "is a directory"
	ReasonNotExecutable ReferenceReason = "not executable"
	ReasonOutsideRoot   ReferenceReason = "outside descriptor directory"
	ReasonUnreadable    ReferenceReason = "unreadable"
)

// ReferenceError reports a file reference that does not resolve to a usable
// file next to the descriptor.
type ReferenceError struct {
	Path   string
	Field  string
	Ref    string
	Reason ReferenceReason
	Err    error
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s: %s %q %s", displayName(e.Path), e.Field, e.Ref, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ReferenceError) Unwrap() error { return e.Err }

func displayName(path string) string {
	if path == "" {
		return "descriptor"
	}

	return path
}
