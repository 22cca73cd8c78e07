package hostproxy_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gosandbox/backend/gojabackend"
	"gosandbox/guestproc"
	"gosandbox/hostproxy"
	"gosandbox/rterrors"
	"gosandbox/value"
	"gosandbox/wire"
)

// newWiredProxy connects a hostproxy.Proxy to a guestproc.Loop over a pair
// of in-memory pipes, end to end, standing in for the real fork+pipe setup
// a supervisor would perform.
func newWiredProxy(t *testing.T) *hostproxy.Proxy {
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

	return hostproxy.New(wire.NewWriter(parentToChildW), wire.NewReader(childToParentR), 2*time.Second, nil)
}

func TestProxyCompileAndCall(t *testing.T) {
	p := newWiredProxy(t)

	ok, err := p.CompileScript([]byte(`function test() { return "ok"; }`))
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, p.IsFunction("test"))
	require.False(t, p.IsFunction("nope"))

	ret, err := p.CallFunction("test", value.NewArray(nil))
	require.NoError(t, err)
	s, ok := ret.Bytes()
	require.True(t, ok)
	require.Equal(t, "ok", string(s))
}

func TestProxyDefineConstant(t *testing.T) {
	p := newWiredProxy(t)

	require.NoError(t, p.DefineConstant("K", value.NewInt32(7)))
	ok, err := p.CompileScript([]byte(`function get_k() { return K; }`))
	require.NoError(t, err)
	require.True(t, ok)

	ret, err := p.CallFunction("get_k", value.NewArray(nil))
	require.NoError(t, err)
	i, ok := ret.Int32()
	require.True(t, ok)
	require.EqualValues(t, 7, i)
}

func TestProxyCallbackRoundTrip(t *testing.T) {
	p := newWiredProxy(t)

	require.NoError(t, p.DefineFunction("add", func(args value.Value) (value.Value, error) {
		elems, _ := args.Elems()
		a, _ := elems[0].Int32()
		b, _ := elems[1].Int32()
		return value.NewInt32(a + b), nil
	}))

	ok, err := p.CompileScript([]byte(`function sum3() { return add(add(1, 2), 3); }`))
	require.NoError(t, err)
	require.True(t, ok)

	ret, err := p.CallFunction("sum3", value.NewArray(nil))
	require.NoError(t, err)
	i, ok := ret.Int32()
	require.True(t, ok)
	require.EqualValues(t, 6, i)
}

func TestProxyReentrancyViolation(t *testing.T) {
	p := newWiredProxy(t)

	require.NoError(t, p.DefineFunction("reenter", func(args value.Value) (value.Value, error) {
		_, err := p.CallFunction("test", value.NewArray(nil))
		require.Error(t, err)
		require.True(t, rterrors.IsKind(err, rterrors.KindReentrant))
		return value.NewBool(true), nil
	}))

	ok, err := p.CompileScript([]byte(`function test() { return "ok"; }
		function driver() { return reenter(); }`))
	require.NoError(t, err)
	require.True(t, ok)

	ret, err := p.CallFunction("driver", value.NewArray(nil))
	require.NoError(t, err)
	b, ok := ret.Bool()
	require.True(t, ok)
	require.True(t, b)
}

func TestProxyDuplicateFunctionNameRejected(t *testing.T) {
	p := newWiredProxy(t)

	noop := func(value.Value) (value.Value, error) { return value.NewVoid(), nil }
	require.NoError(t, p.DefineFunction("f", noop))
	err := p.DefineFunction("f", noop)
	require.Error(t, err)
	require.True(t, rterrors.IsKind(err, rterrors.KindDuplicateFunction))
}

func TestProxyChildGoneIsPoisoned(t *testing.T) {
	parentToChildR, parentToChildW := io.Pipe()
	childToParentR, childToParentW := io.Pipe()
	// No guestproc.Loop on the other end: close the child's read side
	// immediately, as if the process died before replying.
	parentToChildR.Close()
	childToParentW.Close()
	_ = childToParentR

	p := hostproxy.New(wire.NewWriter(parentToChildW), wire.NewReader(childToParentR), 200*time.Millisecond, nil)

	_, err := p.CompileScript([]byte(`1`))
	require.Error(t, err)
	require.True(t, rterrors.IsKind(err, rterrors.KindIPC))

	// Poisoned proxy: the next call fails immediately without touching the wire.
	_, err = p.CompileScript([]byte(`1`))
	require.Error(t, err)
	require.ErrorIs(t, err, rterrors.ErrProxyPoisoned)
}
