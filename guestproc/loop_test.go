package guestproc_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/backend/gojabackend"
	"gosandbox/guestproc"
	"gosandbox/value"
	"gosandbox/wire"
)

// pipePair wires a guest loop to a pair of in-memory pipes standing in for
// the anonymous pipes a real fork would set up, and returns wire.Reader /
// wire.Writer handles a test can drive as "the parent side".
type pipePair struct {
	toChild   *wire.Writer
	fromChild *wire.Reader
	closeFn   func()
}

func newLoopUnderTest(t *testing.T) pipePair {
	t.Helper()

	parentToChildR, parentToChildW := io.Pipe()
	childToParentR, childToParentW := io.Pipe()

	be := gojabackend.New(nil)
	loop := guestproc.New(wire.NewReader(parentToChildR), wire.NewWriter(childToParentW), be, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(context.Background())
	}()

	t.Cleanup(func() {
		parentToChildW.Close()
		<-done
	})

	return pipePair{
		toChild:   wire.NewWriter(parentToChildW),
		fromChild: wire.NewReader(childToParentR),
		closeFn:   func() { parentToChildW.Close() },
	}
}

func TestLoopCompileAndCallFunction(t *testing.T) {
	pp := newLoopUnderTest(t)
	ctx := context.Background()

	require.NoError(t, pp.toChild.WriteByte(wire.OpCompileScript))
	require.NoError(t, pp.toChild.WriteString(`function test() { return "ok"; }`))

	resp, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRespReturn, resp)
	okByte, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, okByte)

	require.NoError(t, pp.toChild.WriteByte(wire.OpCallFunction))
	require.NoError(t, pp.toChild.WriteString("test"))
	require.NoError(t, pp.toChild.WriteValue(value.NewArray(nil)))

	resp, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRespReturn, resp)
	ret, err := pp.fromChild.ReadValue(ctx)
	require.NoError(t, err)
	s, ok := ret.Bytes()
	require.True(t, ok)
	require.Equal(t, "ok", string(s))
}

func TestLoopDefineConstantVisibleToGuest(t *testing.T) {
	pp := newLoopUnderTest(t)
	ctx := context.Background()

	require.NoError(t, pp.toChild.WriteByte(wire.OpDefineConstant))
	require.NoError(t, pp.toChild.WriteString("K"))
	require.NoError(t, pp.toChild.WriteValue(value.NewInt32(7)))

	require.NoError(t, pp.toChild.WriteByte(wire.OpCompileScript))
	require.NoError(t, pp.toChild.WriteString(`function get_k() { return K; }`))
	resp, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRespReturn, resp)
	_, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)

	require.NoError(t, pp.toChild.WriteByte(wire.OpCallFunction))
	require.NoError(t, pp.toChild.WriteString("get_k"))
	require.NoError(t, pp.toChild.WriteValue(value.NewArray(nil)))

	resp, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRespReturn, resp)
	ret, err := pp.fromChild.ReadValue(ctx)
	require.NoError(t, err)
	i, ok := ret.Int32()
	require.True(t, ok)
	require.EqualValues(t, 7, i)
}

func TestLoopIsFunctionNoRespWrapper(t *testing.T) {
	pp := newLoopUnderTest(t)
	ctx := context.Background()

	require.NoError(t, pp.toChild.WriteByte(wire.OpCompileScript))
	require.NoError(t, pp.toChild.WriteString(`function test() {}`))
	_, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	_, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)

	require.NoError(t, pp.toChild.WriteByte(wire.OpIsFunction))
	require.NoError(t, pp.toChild.WriteString("test"))

	// is_function replies with a single raw byte, not a RESP_RETURN frame.
	b, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, b)

	require.NoError(t, pp.toChild.WriteByte(wire.OpIsFunction))
	require.NoError(t, pp.toChild.WriteString("nope"))
	b, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, b)
}

func TestLoopDefineFunctionCallback(t *testing.T) {
	pp := newLoopUnderTest(t)
	ctx := context.Background()

	require.NoError(t, pp.toChild.WriteByte(wire.OpDefineFunction))
	require.NoError(t, pp.toChild.WriteString("add"))

	require.NoError(t, pp.toChild.WriteByte(wire.OpCompileScript))
	require.NoError(t, pp.toChild.WriteString(`function sum3() { return add(add(1, 2), 3); }`))
	resp, err := pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRespReturn, resp)
	_, err = pp.fromChild.ReadByte(ctx)
	require.NoError(t, err)

	require.NoError(t, pp.toChild.WriteByte(wire.OpCallFunction))
	require.NoError(t, pp.toChild.WriteString("sum3"))
	require.NoError(t, pp.toChild.WriteValue(value.NewArray(nil)))

	// drive the callback pump: each RESP_CALLBACK must be answered before
	// the guest's top-level RESP_RETURN appears.
	for {
		op, err := pp.fromChild.ReadByte(ctx)
		require.NoError(t, err)
		if op == wire.OpRespReturn {
			ret, err := pp.fromChild.ReadValue(ctx)
			require.NoError(t, err)
			i, ok := ret.Int32()
			require.True(t, ok)
			require.EqualValues(t, 6, i)
			return
		}
		require.EqualValues(t, wire.OpRespCallback, op)
		name, err := pp.fromChild.ReadString(ctx)
		require.NoError(t, err)
		require.Equal(t, "add", name)
		args, err := pp.fromChild.ReadValue(ctx)
		require.NoError(t, err)
		elems, ok := args.Elems()
		require.True(t, ok)
		require.Len(t, elems, 2)
		a, _ := elems[0].Int32()
		b, _ := elems[1].Int32()
		require.NoError(t, pp.toChild.WriteValue(value.NewInt32(a+b)))
	}
}
