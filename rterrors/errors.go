// Package rterrors provides typed error handling for the sandbox runtime,
// mirroring the teacher's errors package: a small Kind enum, a wrapped
// RuntimeError carrying operation/detail context, and Is/As/Unwrap
// re-exports so callers can keep using the standard library idiom.
package rterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a RuntimeError per the taxonomy of spec §7.
type Kind int

const (
	// KindCompile is a guest script compile-time failure.
	KindCompile Kind = iota
	// KindRuntime is a guest evaluation-time failure.
	KindRuntime
	// KindConversion is a value-conversion failure at the language boundary.
	KindConversion
	// KindIPC is a protocol/transport failure (short read, timeout, malformed length, recursion cap).
	KindIPC
	// KindReentrant is a re-entrancy rule violation (§5).
	KindReentrant
	// KindDuplicateFunction is a duplicate name passed to DefineFunction.
	KindDuplicateFunction
	// KindSandbox is a sandbox bring-up failure (seccomp could not be entered).
	KindSandbox
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile error"
	case KindRuntime:
		return "runtime error"
	case KindConversion:
		return "conversion error"
	case KindIPC:
		return "ipc error"
	case KindReentrant:
		return "re-entrancy violation"
	case KindDuplicateFunction:
		return "duplicate function"
	case KindSandbox:
		return "sandbox error"
	default:
		return "unknown error"
	}
}

// RuntimeError represents an error encountered operating the sandbox.
type RuntimeError struct {
	// Op is the operation that failed (e.g. "compile_script", "call_function").
	Op string
	// Kind classifies the failure.
	Kind Kind
	// Detail provides additional human-readable context.
	Detail string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Op
	if msg != "" {
		msg += ": "
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a *RuntimeError of the same Kind.
func (e *RuntimeError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a RuntimeError with the given kind and detail.
func New(kind Kind, op, detail string) *RuntimeError {
	return &RuntimeError{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps err with operation and kind context.
func Wrap(err error, kind Kind, op string) *RuntimeError {
	return &RuntimeError{Op: op, Kind: kind, Err: err}
}

// WrapWithDetail wraps err with operation, kind, and additional detail.
func WrapWithDetail(err error, kind Kind, op, detail string) *RuntimeError {
	return &RuntimeError{Op: op, Kind: kind, Detail: detail, Err: err}
}

// IsKind reports whether err is a RuntimeError of the given kind.
func IsKind(err error, kind Kind) bool {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Kind == kind
	}
	return false
}

// Re-export standard library functions for convenience, matching the
// teacher's errors package shape.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
