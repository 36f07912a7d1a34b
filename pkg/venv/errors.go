package venv

import (
	"fmt"
)

// Kind classifies bootstrap failures
type Kind int

const (
	// KindCreationFailed means the environment could not be created
	KindCreationFailed Kind = iota + 1
	// KindActivationFailed means the environment exists but cannot be activated
	KindActivationFailed
)

func (k Kind) String() string {
	switch k {
	case KindCreationFailed:
		return "creation failed"
	case KindActivationFailed:
		return "activation failed"
	default:
		return "unknown failure"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrCreationFailed   = &Error{Kind: KindCreationFailed}
	ErrActivationFailed = &Error{Kind: KindActivationFailed}
)

// Error is a bootstrap failure. Both kinds are terminal for the invocation.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Err == nil
}
