package sandboxctl

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gosandbox/backend/gojabackend"
	"gosandbox/guestproc"
	"gosandbox/rtlog"
	"gosandbox/sandbox"
	"gosandbox/supervisor"
	"gosandbox/wire"
)

// guestInitCmd is the re-exec target supervisor.Spawn launches: it never
// runs interactively, and is hidden from --help the same way the
// teacher's init/exec-init commands are.
var guestInitCmd = &cobra.Command{
	Use:    "guest-init",
	Short:  "Enter the sandbox and run the guest dispatch loop (internal use)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runGuestInit,
}

func init() {
	rootCmd.AddCommand(guestInitCmd)
}

func runGuestInit(cmd *cobra.Command, args []string) error {
	logger := rtlog.Default()

	inFile := os.NewFile(uintptr(supervisor.GuestReadFD), "guest-read")
	outFile := os.NewFile(uintptr(supervisor.GuestWriteFD), "guest-write")
	readyFile := os.NewFile(uintptr(supervisor.GuestReadyFD), "guest-ready")
	if inFile == nil || outFile == nil || readyFile == nil {
		return fmt.Errorf("guest-init: missing inherited pipe descriptors")
	}
	ready := supervisor.NewReadyPipeChild(readyFile)

	maxMemory := supervisor.ParseMaxMemory(os.Getenv(supervisor.EnvMaxMemory))
	blacklist := supervisor.ParseBlacklist(os.Getenv(supervisor.EnvBlacklist))
	policy := sandbox.FilterMode
	if os.Getenv(supervisor.EnvPolicy) == "strict" {
		policy = sandbox.StrictMode
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onMemoryExceeded := func() {
		logger.Error("guest exceeded memory budget, exiting")
		os.Exit(1)
	}

	budget, err := sandbox.Lockdown(ctx, sandbox.Config{
		MaxMemory:        maxMemory,
		Policy:           policy,
		SyscallBlacklist: blacklist,
	}, onMemoryExceeded)
	if err != nil {
		_ = ready.SignalError(err)
		return fmt.Errorf("guest-init: sandbox lockdown: %w", err)
	}
	defer budget.Stop()
	_ = ready.SignalReady()
	_ = ready.CloseChild()

	reporter := rtlog.Reporter{Logger: logger}
	be := gojabackend.New(reporter)
	defer be.Destroy()

	loop := guestproc.New(wire.NewReader(inFile), wire.NewWriter(outFile), be, logger)

	// The child side never imposes its own read timeout (§5): it waits,
	// unbounded, for the next opcode or a callback reply.
	if err := loop.Run(context.Background()); err != nil {
		return fmt.Errorf("guest-init: dispatch loop: %w", err)
	}
	return nil
}
