package sandboxctl

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gosandbox/hostproxy"
	"gosandbox/rtconfig"
	"gosandbox/rtlog"
	"gosandbox/supervisor"
	"gosandbox/value"
)

var (
	runTimeout     time.Duration
	runMaxMemory   int64
	runPolicy      string
	runBlacklist   string
	runCallTarget  string
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run <script-file>",
	Short: "Spawn a sandboxed guest and compile a script into it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTimeout, "timeout", rtconfig.DefaultTimeout, "bound on every host-side wire read")
	runCmd.Flags().Int64Var(&runMaxMemory, "max-memory", rtconfig.DefaultMaxMemory, "guest memory budget in bytes")
	runCmd.Flags().StringVar(&runPolicy, "policy", "filter", "seccomp policy: strict or filter")
	runCmd.Flags().StringVar(&runBlacklist, "blacklist", "", "comma-separated syscall blacklist override (filter policy only)")
	runCmd.Flags().StringVar(&runCallTarget, "call", "", "name of a zero-argument guest function to call after compiling")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "after compiling, drop into a line-at-a-time console against the guest")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	logger := rtlog.Default()

	script, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	cfg := rtconfig.Config{
		Timeout:   runTimeout,
		MaxMemory: runMaxMemory,
		Policy:    runPolicy,
		LogFormat: globalLogFormat,
	}
	if runBlacklist != "" {
		cfg.SyscallBlacklist = strings.Split(runBlacklist, ",")
	}

	sup := supervisor.New(cfg, supervisor.Hooks{}, logger)
	proxy, err := sup.Spawn(ctx)
	if err != nil {
		return fmt.Errorf("spawn guest: %w", err)
	}
	defer sup.Destroy(ctx)

	ok, err := proxy.CompileScript(script)
	if err != nil {
		return fmt.Errorf("compile script: %w", err)
	}
	if !ok {
		return fmt.Errorf("script failed to compile or evaluate")
	}

	if runCallTarget != "" {
		if !proxy.IsFunction(runCallTarget) {
			return fmt.Errorf("%q is not a callable guest function", runCallTarget)
		}
		ret, err := proxy.CallFunction(runCallTarget, value.NewArray(nil))
		if err != nil {
			return fmt.Errorf("call %q: %w", runCallTarget, err)
		}
		fmt.Println(ret.String())
	}

	if runInteractive {
		return runREPL(proxy, logger)
	}
	return nil
}

// stdio wires os.Stdin/os.Stdout together into the single io.ReadWriter
// term.NewTerminal expects.
type stdio struct {
	io.Reader
	io.Writer
}

// runREPL drives a line-at-a-time console against an already-spawned
// guest: each line is compiled into the guest as its own top-level
// script, the same way run's initial script file is (§4.1 CompileScript
// is re-entrant across calls, it shares one guest runtime). It exits on
// EOF (Ctrl-D) or a line that is exactly "exit".
func runREPL(proxy *hostproxy.Proxy, logger *slog.Logger) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("interactive mode requires a terminal on stdin")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("put terminal into raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, oldState); err != nil {
			logger.Warn("failed to restore terminal state", "error", err)
		}
	}()

	t := term.NewTerminal(stdio{Reader: os.Stdin, Writer: os.Stdout}, "sandbox> ")
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			fmt.Fprintln(t, "")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if line == "exit" {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		ok, err := proxy.CompileScript([]byte(line))
		if err != nil {
			fmt.Fprintf(t, "error: %v\r\n", err)
			continue
		}
		if !ok {
			fmt.Fprintf(t, "error: script did not evaluate\r\n")
			continue
		}
		fmt.Fprintf(t, "ok\r\n")
	}
}
