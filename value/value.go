// Package value defines the tagged-variant carrier that crosses the
// host/guest boundary, and the in-process-only function handle that never
// does.
package value

import "fmt"

// Kind identifies which case of Value is populated.
type Kind byte

// Wire tag bytes. These values are part of the binary protocol (see
// package wire) and must not be renumbered.
const (
	Void Kind = iota
	Int32
	Float32
	Bool
	String
	Array
	// Function is never serialized; the wire encoder refuses it.
	Function
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Array:
		return "array"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}

// MaxStringLen and MaxArrayLen bound String and Array payloads and the
// total element count read across nested arrays in one decode. They are
// part of the wire format, not merely a local sanity check.
const (
	MaxStringLen = 4096
	MaxArrayLen  = 1024
)

// Callable is the in-process-only shape backing a Function value: a
// synthesized or host-registered function a backend can invoke.
type Callable interface {
	Call(args Value) (Value, error)
}

// Value is a tagged variant. The zero Value is Void. Values are ordinary
// Go data reclaimed by the garbage collector; unlike the C original there
// is no explicit single-owner destroy.
type Value struct {
	kind Kind
	i32  int32
	f32  float32
	b    bool
	str  []byte
	arr  []Value
	fn   Callable
}

// NewVoid returns the Void value.
func NewVoid() Value { return Value{kind: Void} }

// NewInt32 wraps a signed 32-bit integer.
func NewInt32(i int32) Value { return Value{kind: Int32, i32: i} }

// NewFloat32 wraps a 32-bit float.
func NewFloat32(f float32) Value { return Value{kind: Float32, f32: f} }

// NewBool wraps a boolean.
func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

// NewString wraps a byte string. len(s) must be < MaxStringLen; callers
// that violate this get an error at encode time, not here, matching the
// source's "errors are reported where they bite" style.
func NewString(s []byte) Value {
	cp := make([]byte, len(s))
	copy(cp, s)
	return Value{kind: String, str: cp}
}

// NewStringFromGo wraps a Go string.
func NewStringFromGo(s string) Value {
	return NewString([]byte(s))
}

// NewArray wraps an ordered sequence of values. len(elems) must be <
// MaxArrayLen.
func NewArray(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: Array, arr: cp}
}

// NewFunction wraps an opaque in-process callable. It is never serialized;
// package wire's encoder refuses this kind.
func NewFunction(c Callable) Value {
	return Value{kind: Function, fn: c}
}

// Kind reports which case is populated.
func (v Value) Kind() Kind { return v.kind }

// Int32 returns the wrapped integer and whether the kind matched.
func (v Value) Int32() (int32, bool) { return v.i32, v.kind == Int32 }

// Float32 returns the wrapped float and whether the kind matched.
func (v Value) Float32() (float32, bool) { return v.f32, v.kind == Float32 }

// Bool returns the wrapped boolean and whether the kind matched.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

// Bytes returns the wrapped string bytes and whether the kind matched.
func (v Value) Bytes() ([]byte, bool) { return v.str, v.kind == String }

// Text returns the wrapped string as a Go string and whether the kind matched.
func (v Value) Text() (string, bool) { return string(v.str), v.kind == String }

// Elems returns the wrapped array elements and whether the kind matched.
func (v Value) Elems() ([]Value, bool) { return v.arr, v.kind == Array }

// Func returns the wrapped callable and whether the kind matched.
func (v Value) Func() (Callable, bool) { return v.fn, v.kind == Function }

// Equal reports deep equality, used by round-trip tests. Function values
// are never equal to anything (including themselves) since identity, not
// structure, is what they carry and they never cross the wire.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Void:
		return true
	case Int32:
		return v.i32 == o.i32
	case Float32:
		return v.f32 == o.f32
	case Bool:
		return v.b == o.b
	case String:
		return string(v.str) == string(o.str)
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case Void:
		return "void"
	case Int32:
		return fmt.Sprintf("int32(%d)", v.i32)
	case Float32:
		return fmt.Sprintf("float32(%g)", v.f32)
	case Bool:
		return fmt.Sprintf("bool(%t)", v.b)
	case String:
		return fmt.Sprintf("string(%q)", v.str)
	case Array:
		return fmt.Sprintf("array(len=%d)", len(v.arr))
	case Function:
		return "function(<opaque>)"
	default:
		return "invalid"
	}
}
