// Package cli provides the command-line interface for replaycheck.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/internal/cli/commands"
	"github.com/ccollicutt/replaycheck/internal/cli/plugins"
	"github.com/ccollicutt/replaycheck/internal/logging"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()

	// An unknown first word may be a plugin.
	if name, ok := pluginCandidate(rootCmd, os.Args[1:]); ok {
		if pluginPath, err := plugins.FindPlugin(name); err == nil {
			return plugins.Execute(ctx, pluginPath, os.Args[2:])
		}
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if name, ok := pluginCandidate(rootCmd, os.Args[1:]); ok {
			_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(name))
			return 2
		}
		// SilenceErrors keeps cobra from printing this itself.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

func pluginCandidate(rootCmd *cobra.Command, args []string) (string, bool) {
	if len(args) == 0 || args[0] == "" || strings.HasPrefix(args[0], "-") {
		return "", false
	}
	if isBuiltinCommand(rootCmd, args[0]) {
		return "", false
	}
	return args[0], true
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "replaycheck",
		Short: "Reconcile engine and broker event logs from a replay",
		Long: `replaycheck compares the event logs an engine and a broker wrote while
replaying the same stream, and reports where they disagree.

Checks:
  json          Align JSON events line by line, tolerating synthetic records
  md5           Compare md5 fingerprint columns positionally
  multiplicity  Verify every retained fingerprint occurs exactly once

Run a suite of checks with 'replaycheck run suite.yaml', or a single pair
with 'replaycheck json|md5|multiplicity <log1> <log2>'.

Exit codes: 0 all checks passed, 1 a check failed, 2 usage or I/O error.

PLUGINS:
  replaycheck supports plugins for extended functionality. Plugins are
  standalone binaries named replaycheck-<command> that are automatically
  discovered and invoked.

  Plugin locations (searched in order):
    1. $REPLAYCHECK_PLUGIN_DIR
    2. Same directory as the replaycheck binary
    3. ~/.replaycheck/plugins/
    4. Anywhere in PATH`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			switch logFormat {
			case "text", "json":
			default:
				return fmt.Errorf("unknown log format %q (use text or json)", logFormat)
			}
			logging.Init(os.Stderr, logFormat == "json", level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	if found := plugins.List(); len(found) > 0 {
		rootCmd.Long += "\n\n  Installed plugins: " + strings.Join(found, ", ")
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewJSONCommand())
	rootCmd.AddCommand(commands.NewMD5Command())
	rootCmd.AddCommand(commands.NewMultiplicityCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
