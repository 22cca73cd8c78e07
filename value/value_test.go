package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/value"
)

func TestEqualScalars(t *testing.T) {
	require.True(t, value.NewVoid().Equal(value.NewVoid()))
	require.True(t, value.NewInt32(7).Equal(value.NewInt32(7)))
	require.False(t, value.NewInt32(7).Equal(value.NewInt32(8)))
	require.True(t, value.NewFloat32(1.5).Equal(value.NewFloat32(1.5)))
	require.True(t, value.NewBool(true).Equal(value.NewBool(true)))
	require.True(t, value.NewStringFromGo("ok").Equal(value.NewStringFromGo("ok")))
	require.False(t, value.NewStringFromGo("ok").Equal(value.NewStringFromGo("no")))
}

func TestEqualArrayNested(t *testing.T) {
	a := value.NewArray([]value.Value{
		value.NewInt32(1),
		value.NewArray([]value.Value{value.NewBool(true), value.NewVoid()}),
	})
	b := value.NewArray([]value.Value{
		value.NewInt32(1),
		value.NewArray([]value.Value{value.NewBool(true), value.NewVoid()}),
	})
	require.True(t, a.Equal(b))

	c := value.NewArray([]value.Value{value.NewInt32(2)})
	require.False(t, a.Equal(c))
}

func TestAccessorsMismatchedKind(t *testing.T) {
	v := value.NewInt32(3)
	_, ok := v.Bool()
	require.False(t, ok)
	_, ok = v.Text()
	require.False(t, ok)
}

func TestNewStringCopiesBuffer(t *testing.T) {
	buf := []byte("mutate-me")
	v := value.NewString(buf)
	buf[0] = 'X'
	s, _ := v.Text()
	require.Equal(t, "mutate-me", s)
}
