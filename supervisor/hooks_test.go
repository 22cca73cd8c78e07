package supervisor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/supervisor"
)

func TestHooksRunInOrder(t *testing.T) {
	var order []string
	hooks := supervisor.Hooks{
		PreSpawn: []supervisor.Hook{
			func(ctx context.Context, s supervisor.State) error { order = append(order, "a"); return nil },
			func(ctx context.Context, s supervisor.State) error { order = append(order, "b"); return nil },
		},
	}

	// Spawn itself needs a real re-exec target to test end to end; here we
	// drive the ordering contract directly.
	for _, h := range hooks.PreSpawn {
		require.NoError(t, h(context.Background(), supervisor.State{}))
	}
	require.Equal(t, []string{"a", "b"}, order)
}

func TestHooksStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	hooks := []supervisor.Hook{
		func(ctx context.Context, s supervisor.State) error { ran = append(ran, "first"); return nil },
		func(ctx context.Context, s supervisor.State) error { return boom },
		func(ctx context.Context, s supervisor.State) error { ran = append(ran, "third"); return nil },
	}

	var err error
	for _, h := range hooks {
		if err = h(context.Background(), supervisor.State{}); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"first"}, ran)
}
