// Package cli provides the runwhen command line.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"runwhen/internal/config"
	"runwhen/internal/orchestrator"
	"runwhen/internal/output"
	"runwhen/internal/watcher"
)

// newRootCmd builds the root command. Flags are bound to a fresh Options
// value so that each command instance is independent.
func newRootCmd(version string) *cobra.Command {
	opts := config.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "runwhen -f <path> -c <command>",
		Short: "Run a command when files change",
		Long: `runwhen watches a file or directory and runs a command once changes settle.

Every burst of changes is coalesced: the command runs once, after no further
change has been seen for the debounce period. Commands never overlap; bursts
that settle while a command is running are run in order afterwards.

Editor swap and lock files are always ignored.`,
		Example: `  # Rebuild whenever anything under src/ changes
  runwhen -r -f src -c ./build.sh

  # Wait two seconds of quiet before running
  runwhen -t 2s -f notes.md -c ./publish.sh

  # Ignore generated files
  runwhen -r -f . -c ./test.sh --ignore "dist/**" --ignore "*.log"`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Ignore = append(watcher.DefaultIgnorePatterns(), opts.Ignore...)
			cfg, err := config.Load(opts)
			if err != nil {
				return err
			}

			out := output.New(output.Config{
				Verbose:   cfg.Verbose,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				IsTTY:     output.DefaultConfig().IsTTY,
			})
			for _, warning := range config.ValidateConfig(cfg).Warnings {
				out.Warn("%s: %s", warning.Field, warning.Message)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out.Info("%s", orchestrator.Describe(cfg))
			summary, err := orchestrator.Watch(ctx, cfg, out)
			switch {
			case summary == nil:
			case summary.HasErrors():
				out.Warn("%s", summary.PrintSummary())
			default:
				out.Info("%s", summary.PrintSummary())
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.DebouncePeriod, "debounce-period", "t", opts.DebouncePeriod, "quiet period before the command runs (e.g. 600ms, 2s, 1m30s)")
	flags.BoolVarP(&opts.Recursive, "recursive", "r", false, "watch every directory below the target")
	flags.StringVarP(&opts.File, "file", "f", "", "file or directory to watch")
	flags.StringVarP(&opts.CommandFile, "command-file", "c", "", "executable to run after changes settle")
	flags.StringArrayVarP(&opts.Ignore, "ignore", "i", nil, "glob of paths to ignore (repeatable)")
	flags.BoolVar(&opts.Capture, "capture", opts.Capture, "capture the command's output and report it")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "kill the command after this long (0 means never)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log every change event")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("command-file")

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute(version string) {
	if err := newRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
