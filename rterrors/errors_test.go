package rterrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/rterrors"
)

func TestIsKindMatchesWrappedError(t *testing.T) {
	cause := errors.New("pipe closed")
	err := rterrors.Wrap(cause, rterrors.KindIPC, "call_function")

	require.True(t, rterrors.IsKind(err, rterrors.KindIPC))
	require.False(t, rterrors.IsKind(err, rterrors.KindReentrant))
	require.ErrorIs(t, err, cause)
}

func TestSentinelIsMatchesByKind(t *testing.T) {
	wrapped := rterrors.Wrap(errors.New("boom"), rterrors.KindReentrant, "call_function")
	require.True(t, errors.Is(wrapped, rterrors.ErrReentrant))
}

func TestErrorStringIncludesOpAndDetail(t *testing.T) {
	err := rterrors.New(rterrors.KindDuplicateFunction, "define_function", `name "add" already bound`)
	require.Contains(t, err.Error(), "define_function")
	require.Contains(t, err.Error(), `name "add" already bound`)
}
