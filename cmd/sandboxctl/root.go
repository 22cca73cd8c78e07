// Package sandboxctl implements the sandboxctl CLI: a host-side "run"
// command that spawns a sandboxed guest and drives a script through it,
// and a hidden "guest-init" command that is the re-exec target the
// supervisor package launches as the child process.
package sandboxctl

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gosandbox/rtlog"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "sandboxctl",
	Short: "Run untrusted scripts inside a seccomp-sandboxed child process",
	Long: `sandboxctl runs a guest script inside a forked, seccomp-locked-down
child process, communicating with it over a pair of anonymous pipes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		if f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			logOutput = f
		}
	}

	logLevel := slog.LevelInfo
	if globalDebug {
		logLevel = slog.LevelDebug
	}

	logger := rtlog.NewLogger(rtlog.Config{
		Level:  logLevel,
		Format: globalLogFormat,
		Output: logOutput,
	})
	rtlog.SetDefault(logger)
}
