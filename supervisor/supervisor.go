// Package supervisor owns the sandboxed child's process lifecycle: spawn
// it via re-exec (grounded in the teacher's container/exec.go re-exec
// pattern, since a multi-threaded Go process cannot safely fork() without
// immediately exec'ing), wire up a hostproxy.Proxy over the two pipes
// handed to it, and reap it on Destroy (grounded in container/start.go's
// Wait, itself a syscall.Wait4 wrapper).
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gosandbox/hostproxy"
	"gosandbox/rtconfig"
	"gosandbox/wire"
)

// Environment variables used to pass spawn configuration across the
// re-exec boundary, in the style of the teacher's _RUNC_GO_EXEC_* vars.
const (
	EnvMaxMemory  = "_SANDBOX_MAX_MEMORY"
	EnvPolicy     = "_SANDBOX_POLICY"
	EnvBlacklist  = "_SANDBOX_BLACKLIST"
	EnvLogFormat  = "_SANDBOX_LOG_FORMAT"
	GuestInitArgs = "guest-init"
)

// GuestReadFD and GuestWriteFD are the fixed descriptor numbers the guest
// process finds its ends of the pipes on: os/exec.Cmd.ExtraFiles always
// starts at fd 3, after stdin/stdout/stderr.
const (
	GuestReadFD  = 3
	GuestWriteFD = 4
	GuestReadyFD = 5
)

// Supervisor spawns and tears down one sandboxed child process.
type Supervisor struct {
	cfg    rtconfig.Config
	hooks  Hooks
	logger *slog.Logger

	cmd       *exec.Cmd
	hostWrite *os.File
	hostRead  *os.File
	proxy     *hostproxy.Proxy
}

// New constructs a Supervisor. logger may be nil.
func New(cfg rtconfig.Config, hooks Hooks, logger *slog.Logger) *Supervisor {
	return &Supervisor{cfg: cfg.WithDefaults(), hooks: hooks, logger: logger}
}

// Spawn re-execs the current binary as "<self> guest-init", wires a
// hostproxy.Proxy to its pipes, and runs the PreSpawn/PostSpawn hooks
// around the transition.
func (s *Supervisor) Spawn(ctx context.Context) (*hostproxy.Proxy, error) {
	if err := s.hooks.runPreSpawn(ctx, State{Status: "starting"}); err != nil {
		return nil, err
	}

	hostToGuestR, hostToGuestW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: host-to-guest pipe: %w", err)
	}
	guestToHostR, guestToHostW, err := os.Pipe()
	if err != nil {
		hostToGuestR.Close()
		hostToGuestW.Close()
		return nil, fmt.Errorf("supervisor: guest-to-host pipe: %w", err)
	}

	readyPipe, err := NewReadyPipe()
	if err != nil {
		hostToGuestR.Close()
		hostToGuestW.Close()
		guestToHostR.Close()
		guestToHostW.Close()
		return nil, err
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("supervisor: resolve own executable: %w", err)
	}

	cmd := exec.Command(self, GuestInitArgs)
	cmd.ExtraFiles = []*os.File{hostToGuestR, guestToHostW, readyPipe.ChildFile()}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", EnvMaxMemory, s.cfg.MaxMemory),
		fmt.Sprintf("%s=%s", EnvPolicy, s.cfg.Policy),
		fmt.Sprintf("%s=%s", EnvBlacklist, strings.Join(s.cfg.SyscallBlacklist, ",")),
		fmt.Sprintf("%s=%s", EnvLogFormat, s.cfg.LogFormat),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		hostToGuestR.Close()
		hostToGuestW.Close()
		guestToHostR.Close()
		guestToHostW.Close()
		readyPipe.CloseParent()
		readyPipe.CloseChild()
		return nil, fmt.Errorf("supervisor: start guest process: %w", err)
	}

	// The child inherited its own copies of these fds; the parent's are
	// only needed to pass them, and must be closed so the guest sees EOF
	// when the parent side ever goes away.
	hostToGuestR.Close()
	guestToHostW.Close()
	readyPipe.CloseChild()

	s.cmd = cmd
	s.hostWrite = hostToGuestW
	s.hostRead = guestToHostR

	if err := readyPipe.WaitReady(); err != nil {
		s.killAndReap()
		return nil, err
	}
	readyPipe.CloseParent()

	if s.logger != nil {
		s.logger.Info("guest spawned", slog.Int("pid", cmd.Process.Pid))
	}

	proxy := hostproxy.New(wire.NewWriter(hostToGuestW), wire.NewReader(guestToHostR), s.cfg.Timeout, s.logger)
	s.proxy = proxy

	state := State{ChildPID: cmd.Process.Pid, Status: "running"}
	if err := s.hooks.runPostSpawn(ctx, state); err != nil {
		s.killAndReap()
		return nil, err
	}

	return proxy, nil
}

// Destroy signals the child to terminate and reaps it, running the
// PreDestroy/PostDestroy hooks around the transition. It is safe to call
// more than once.
func (s *Supervisor) Destroy(ctx context.Context) error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	state := State{ChildPID: s.cmd.Process.Pid, Status: "running"}
	if err := s.hooks.runPreDestroy(ctx, state); err != nil {
		return err
	}

	if s.proxy != nil {
		_ = s.proxy.Destroy()
	}

	waitErr := s.killAndReap()

	state.Status = "stopped"
	if err := s.hooks.runPostDestroy(ctx, state); err != nil {
		return err
	}
	return waitErr
}

// killAndReap sends SIGKILL and reaps the child with a blocking wait4 run
// in a goroutine, giving up after 5 seconds, matching the teacher's Wait
// (container/start.go).
func (s *Supervisor) killAndReap() error {
	pid := s.cmd.Process.Pid
	_ = s.cmd.Process.Signal(syscall.SIGKILL)

	type result struct {
		wstatus syscall.WaitStatus
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		var wstatus syscall.WaitStatus
		_, err := syscall.Wait4(pid, &wstatus, 0, nil)
		resCh <- result{wstatus, err}
	}()

	var waitErr error
	select {
	case r := <-resCh:
		waitErr = r.err
		if s.logger != nil {
			s.logger.Info("guest reaped", slog.Int("pid", pid),
				slog.Bool("signaled", r.wstatus.Signaled()), slog.Int("status", r.wstatus.ExitStatus()))
		}
	case <-time.After(5 * time.Second):
		waitErr = fmt.Errorf("supervisor: timed out waiting to reap pid %d", pid)
	}

	if s.hostWrite != nil {
		s.hostWrite.Close()
	}
	if s.hostRead != nil {
		s.hostRead.Close()
	}
	return waitErr
}

// ParseBlacklist splits the comma-joined EnvBlacklist value back into a
// slice, used by the guest-init entry point.
func ParseBlacklist(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ParseMaxMemory parses the EnvMaxMemory value, defaulting to
// rtconfig.DefaultMaxMemory on a malformed or empty value.
func ParseMaxMemory(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return rtconfig.DefaultMaxMemory
	}
	return n
}
