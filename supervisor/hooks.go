package supervisor

import (
	"context"
	"fmt"
)

// HookType identifies a point in the sandboxed child's lifecycle a caller
// can observe, adapted from the teacher's OCI lifecycle hooks
// (hooks/hooks.go) to the much smaller lifecycle a script sandbox has: no
// namespaces or rootfs to stage, just a process to bring up and tear down.
type HookType string

const (
	// PreSpawn runs before the child process is started.
	PreSpawn HookType = "preSpawn"
	// PostSpawn runs after the child process has started and entered its
	// seccomp lockdown, before any script is compiled.
	PostSpawn HookType = "postSpawn"
	// PreDestroy runs before the child is signaled to terminate.
	PreDestroy HookType = "preDestroy"
	// PostDestroy runs after the child has been reaped.
	PostDestroy HookType = "postDestroy"
)

// State is the lifecycle snapshot passed to hooks, standing in for the
// teacher's *spec.State.
type State struct {
	ChildPID int
	Status   string
}

// Hook is a single lifecycle callback. Unlike the teacher's hooks, which
// exec an external process with the state on stdin, sandbox hooks are
// in-process Go funcs: there is no container rootfs to invoke a hook
// binary from, and the whole point of this package is to stay inside one
// process tree.
type Hook func(ctx context.Context, state State) error

// Hooks groups the four lifecycle points a Supervisor will invoke.
type Hooks struct {
	PreSpawn    []Hook
	PostSpawn   []Hook
	PreDestroy  []Hook
	PostDestroy []Hook
}

// run executes every hook of the given type in order, stopping at the
// first error.
func run(ctx context.Context, hookType HookType, hooks []Hook, state State) error {
	for _, h := range hooks {
		if err := h(ctx, state); err != nil {
			return fmt.Errorf("%s hook: %w", hookType, err)
		}
	}
	return nil
}

func (h Hooks) runPreSpawn(ctx context.Context, state State) error {
	return run(ctx, PreSpawn, h.PreSpawn, state)
}

func (h Hooks) runPostSpawn(ctx context.Context, state State) error {
	return run(ctx, PostSpawn, h.PostSpawn, state)
}

func (h Hooks) runPreDestroy(ctx context.Context, state State) error {
	return run(ctx, PreDestroy, h.PreDestroy, state)
}

func (h Hooks) runPostDestroy(ctx context.Context, state State) error {
	return run(ctx, PostDestroy, h.PostDestroy, state)
}
