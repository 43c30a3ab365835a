package kernelgen

import "github.com/pkg/errors"

// Kind classifies the fatal error kinds the kernel-generation core can raise.
// All of them abort compilation of the current program; there is no partial result.
type Kind int

//go:generate go tool enumer -type=Kind -trimprefix=Kind -output=kind_string.go errors.go

const (
	// KindInvalidProgram covers a missing binding, an unsupported contraction
	// arity, or a malformed special-op triple.
	KindInvalidProgram Kind = iota
	// KindInvalidReshape covers a reshape whose byte_size or elem_size changed.
	KindInvalidReshape
	// KindInternalInvariant covers should-never-happen assertions: empty
	// post_ops input, stride-length mismatch, and similar.
	KindInternalInvariant
)

// Error wraps a Kind with the underlying cause, so callers can
// errors.As(err, &kgErr) to branch on Kind without parsing messages.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError builds an *Error of the given kind, formatting like errors.Errorf.
func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

func invalidProgramf(format string, args ...any) error {
	return newError(KindInvalidProgram, format, args...)
}

func invalidReshapef(format string, args ...any) error {
	return newError(KindInvalidReshape, format, args...)
}

func internalInvariantf(format string, args ...any) error {
	return newError(KindInternalInvariant, format, args...)
}
