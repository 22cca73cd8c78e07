package sandbox

import (
	"context"
	"time"
)

// Policy selects how the final kernel lockdown step (§4.5 item 3) is
// enforced.
type Policy int

const (
	// StrictMode calls prctl(PR_SET_SECCOMP, SECCOMP_MODE_STRICT): only
	// read, write, the exit variants, and rt_sigreturn remain legal. This
	// is the literal behavior of §4.5 item 3 and is appropriate for a
	// guest backend written to tolerate it (a tiny bytecode interpreter
	// with no further syscalls after startup).
	StrictMode Policy = iota

	// FilterMode installs a classic-BPF SECCOMP_MODE_FILTER program that
	// blacklists a configurable syscall set (§4.5 item 2's categories)
	// and allows everything else. This is the §9-sanctioned substitute
	// "on platforms where strict seccomp is unavailable" — and, in
	// practice, for any backend whose runtime (like goja, and the Go
	// runtime hosting it) needs far more than five syscalls to function.
	// The contract is preserved: any syscall the operator chooses to
	// blacklist kills or fails the attempt; FilterMode only widens what's
	// legal beyond the literal minimal whitelist.
	FilterMode
)

// Config configures a single Lockdown call.
type Config struct {
	MaxMemory         int64
	Policy            Policy
	SyscallBlacklist  []string // used by FilterMode; DefaultBlacklist if nil
	MemorySampleEvery time.Duration
}

// Lockdown runs the full §4.5 bring-up sequence: memory budget, best-effort
// trampoline, then the kernel seccomp step selected by cfg.Policy. onMemoryExceeded
// is invoked (expected to terminate the process) if the sampled heap usage
// crosses cfg.MaxMemory. Platform-specific seccomp installation lives in
// seccomp_linux.go/seccomp_other.go.
func Lockdown(ctx context.Context, cfg Config, onMemoryExceeded func()) (*MemoryBudget, error) {
	blacklist := cfg.SyscallBlacklist
	if blacklist == nil {
		blacklist = DefaultBlacklist
	}

	budget := NewMemoryBudget(cfg.MaxMemory, cfg.MemorySampleEvery)
	budget.Start(ctx, onMemoryExceeded)

	trampoline := NewTrampoline(blacklist, nil)
	_ = trampoline.Install() // best-effort, never fails

	if err := installSeccomp(cfg.Policy, blacklist); err != nil {
		budget.Stop()
		return nil, err
	}
	return budget, nil
}
