package wire

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gosandbox/value"
)

// ErrStringTooLong is returned when a decoded string length header falls
// outside [0, value.MaxStringLen).
var ErrStringTooLong = errors.New("wire: string length out of range")

// ErrArrayTooLong is returned when a decoded array length header falls
// outside [0, value.MaxArrayLen), or when the running element count across
// one top-level decode would reach value.MaxArrayLen.
var ErrArrayTooLong = errors.New("wire: array length out of range")

// ErrFunctionNotSerializable is returned if encode is asked to write a
// Function value; function handles are in-process only (§9 design notes).
var ErrFunctionNotSerializable = errors.New("wire: function values cannot cross the wire")

// ErrBadTag is returned when a decoded tag byte does not match any known
// value.Kind.
var ErrBadTag = errors.New("wire: unrecognized value tag")

// Writer serializes opcodes, strings and values onto an underlying byte
// stream (normally one end of an anonymous pipe).
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteByte writes a single opcode/tag byte.
func (w *Writer) WriteByte(b byte) error {
	return writeFull(w.w, []byte{b})
}

// WriteString writes a 4-byte length prefix followed by the raw bytes of s.
// It is the caller's responsibility to keep len(s) < value.MaxStringLen;
// WriteString returns ErrStringTooLong rather than silently truncating.
func (w *Writer) WriteString(s string) error {
	if len(s) >= value.MaxStringLen {
		return ErrStringTooLong
	}
	hdr := make([]byte, 4)
	binary.NativeEndian.PutUint32(hdr, uint32(len(s)))
	if err := writeFull(w.w, hdr); err != nil {
		return err
	}
	return writeFull(w.w, []byte(s))
}

// WriteValue serializes v per the tagged-variant wire format of spec §4.2.
func (w *Writer) WriteValue(v value.Value) error {
	switch v.Kind() {
	case value.Void:
		return writeFull(w.w, []byte{byte(value.Void)})
	case value.Int32:
		buf := make([]byte, 5)
		buf[0] = byte(value.Int32)
		i, _ := v.Int32()
		binary.NativeEndian.PutUint32(buf[1:], uint32(i))
		return writeFull(w.w, buf)
	case value.Float32:
		buf := make([]byte, 5)
		buf[0] = byte(value.Float32)
		f, _ := v.Float32()
		binary.NativeEndian.PutUint32(buf[1:], math.Float32bits(f))
		return writeFull(w.w, buf)
	case value.Bool:
		b, _ := v.Bool()
		var bb byte
		if b {
			bb = 1
		}
		return writeFull(w.w, []byte{byte(value.Bool), bb})
	case value.String:
		if err := writeFull(w.w, []byte{byte(value.String)}); err != nil {
			return err
		}
		s, _ := v.Bytes()
		if len(s) >= value.MaxStringLen {
			return ErrStringTooLong
		}
		hdr := make([]byte, 4)
		binary.NativeEndian.PutUint32(hdr, uint32(len(s)))
		if err := writeFull(w.w, hdr); err != nil {
			return err
		}
		return writeFull(w.w, s)
	case value.Array:
		if err := writeFull(w.w, []byte{byte(value.Array)}); err != nil {
			return err
		}
		elems, _ := v.Elems()
		if len(elems) >= value.MaxArrayLen {
			return ErrArrayTooLong
		}
		hdr := make([]byte, 4)
		binary.NativeEndian.PutUint32(hdr, uint32(len(elems)))
		if err := writeFull(w.w, hdr); err != nil {
			return err
		}
		for _, e := range elems {
			if err := w.WriteValue(e); err != nil {
				return err
			}
		}
		return nil
	case value.Function:
		return ErrFunctionNotSerializable
	default:
		return fmt.Errorf("wire: cannot encode kind %v", v.Kind())
	}
}

// Reader deserializes opcodes, strings and values from an underlying byte
// stream. All reads accept a context used to bound the wait (the child
// side passes context.Background(), meaning unbounded, per §5).
type Reader struct {
	r io.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadByte reads a single opcode/tag byte.
func (rd *Reader) ReadByte(ctx context.Context) (byte, error) {
	buf := make([]byte, 1)
	if err := readFull(ctx, rd.r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadString reads a length-prefixed string, rejecting headers outside
// [0, value.MaxStringLen).
func (rd *Reader) ReadString(ctx context.Context) (string, error) {
	hdr := make([]byte, 4)
	if err := readFull(ctx, rd.r, hdr); err != nil {
		return "", err
	}
	l := int32(binary.NativeEndian.Uint32(hdr))
	if l < 0 || l >= value.MaxStringLen {
		return "", ErrStringTooLong
	}
	buf := make([]byte, l)
	if err := readFull(ctx, rd.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadValue reads one tagged value, enforcing the bounded-recursion guard
// of spec §3/§4.2: the running element count decoded across one call
// (including all nested arrays) must stay below value.MaxArrayLen.
func (rd *Reader) ReadValue(ctx context.Context) (value.Value, error) {
	count := 0
	return rd.readValue(ctx, &count)
}

func (rd *Reader) readValue(ctx context.Context, count *int) (value.Value, error) {
	tagBuf := make([]byte, 1)
	if err := readFull(ctx, rd.r, tagBuf); err != nil {
		return value.Value{}, err
	}

	switch value.Kind(tagBuf[0]) {
	case value.Void:
		return value.NewVoid(), nil
	case value.Int32:
		buf := make([]byte, 4)
		if err := readFull(ctx, rd.r, buf); err != nil {
			return value.Value{}, err
		}
		return value.NewInt32(int32(binary.NativeEndian.Uint32(buf))), nil
	case value.Float32:
		buf := make([]byte, 4)
		if err := readFull(ctx, rd.r, buf); err != nil {
			return value.Value{}, err
		}
		return value.NewFloat32(math.Float32frombits(binary.NativeEndian.Uint32(buf))), nil
	case value.Bool:
		buf := make([]byte, 1)
		if err := readFull(ctx, rd.r, buf); err != nil {
			return value.Value{}, err
		}
		return value.NewBool(buf[0] != 0), nil
	case value.String:
		hdr := make([]byte, 4)
		if err := readFull(ctx, rd.r, hdr); err != nil {
			return value.Value{}, err
		}
		l := int32(binary.NativeEndian.Uint32(hdr))
		if l < 0 || l >= value.MaxStringLen {
			return value.Value{}, ErrStringTooLong
		}
		buf := make([]byte, l)
		if err := readFull(ctx, rd.r, buf); err != nil {
			return value.Value{}, err
		}
		return value.NewString(buf), nil
	case value.Array:
		hdr := make([]byte, 4)
		if err := readFull(ctx, rd.r, hdr); err != nil {
			return value.Value{}, err
		}
		n := int32(binary.NativeEndian.Uint32(hdr))
		// Protect against the "decode bomb" scenario of §8 scenario 6: a
		// crafted header declaring a huge N must fail before any
		// allocation proportional to N happens.
		if n < 0 || n >= value.MaxArrayLen {
			return value.Value{}, ErrArrayTooLong
		}
		if int(n) >= value.MaxArrayLen-*count {
			return value.Value{}, ErrArrayTooLong
		}
		*count += int(n)

		elems := make([]value.Value, 0, n)
		for i := int32(0); i < n; i++ {
			e, err := rd.readValue(ctx, count)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, e)
		}
		return value.NewArray(elems), nil
	default:
		return value.Value{}, ErrBadTag
	}
}
