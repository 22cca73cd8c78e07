package sandbox_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gosandbox/sandbox"
)

func TestMemoryBudgetExceededTriggersOnce(t *testing.T) {
	var hits int32
	budget := sandbox.NewMemoryBudget(1, 5*time.Millisecond) // 1 byte: exceeded immediately
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	budget.Start(ctx, func() { atomic.AddInt32(&hits, 1) })

	time.Sleep(100 * time.Millisecond)
	budget.Stop()

	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestMemoryBudgetStopIsIdempotent(t *testing.T) {
	budget := sandbox.NewMemoryBudget(1<<40, time.Second)
	budget.Stop()
	budget.Stop() // must not panic
}
