// Package rterrors: predefined sentinel errors for common failure cases.
package rterrors

// Re-entrancy and proxy-lifecycle errors.
var (
	// ErrReentrant indicates a host callback tried to issue a new
	// top-level guest operation while one was already in flight (§5).
	ErrReentrant = &RuntimeError{
		Kind:   KindReentrant,
		Detail: "cannot invoke the guest from within a host callback",
	}

	// ErrProxyPoisoned indicates a prior IPC error left the proxy unable
	// to trust the wire's framing; all further operations fail without
	// touching it (§9 Open Question (b)).
	ErrProxyPoisoned = &RuntimeError{
		Kind:   KindIPC,
		Detail: "proxy is poisoned by a prior protocol error",
	}

	// ErrChildGone indicates the child process's pipe closed unexpectedly
	// (sandbox kill, crash, or clean exit without a response).
	ErrChildGone = &RuntimeError{
		Kind:   KindIPC,
		Detail: "child process is no longer reachable",
	}
)

// Sandbox bring-up errors.
var (
	// ErrSeccompUnavailable indicates strict seccomp could not be entered.
	ErrSeccompUnavailable = &RuntimeError{
		Kind:   KindSandbox,
		Detail: "could not enter seccomp strict mode",
	}

	// ErrMemoryBudgetExceeded indicates the child exceeded its configured
	// memory budget and was terminated.
	ErrMemoryBudgetExceeded = &RuntimeError{
		Kind:   KindSandbox,
		Detail: "guest exceeded its memory budget",
	}
)

// Configuration errors.
var (
	// ErrDuplicateCallback indicates DefineFunction was called twice with
	// the same name; the existing mapping is left unchanged.
	ErrDuplicateCallback = &RuntimeError{
		Kind:   KindDuplicateFunction,
		Detail: "callback function already defined",
	}

	// ErrUnknownCallback indicates the guest requested a callback name the
	// host never registered.
	ErrUnknownCallback = &RuntimeError{
		Kind:   KindIPC,
		Detail: "callback function not registered",
	}
)
