// Package orchestrator runs a watch session: it wires the watch source, the
// debounce loop and the command runner together and reports what happens.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"runwhen/internal/config"
	"runwhen/internal/runner"
	"runwhen/internal/watcher"
)

// Reporter receives user-facing messages. *output.Output implements it.
type Reporter interface {
	Info(format string, args ...interface{})
	Verbose(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Captured(stream string, text string)
}

// Watch watches cfg.Target and runs cfg.Command once per settled burst of
// changes, until ctx is cancelled or the watch fails.
//
// Commands run one at a time in trigger order. Cancellation ends the session
// with a nil error; a watch failure is returned. The summary is returned in
// both cases once the session has started.
func Watch(ctx context.Context, cfg *config.Configuration, reporter Reporter) (*Summary, error) {
	start := time.Now()

	source := watcher.NewSource(watcher.SourceConfig{
		Path:           cfg.Target.Path,
		Recursive:      cfg.Target.Recursive,
		IgnorePatterns: cfg.IgnorePatterns,
	}, reporter)
	if err := source.Start(); err != nil {
		return nil, err
	}
	defer source.Stop()

	coalescer := watcher.NewCoalescer(cfg.Debounce, source.Events(), source.Errors(), reporter)
	run := runner.New(runner.Config{
		Command: cfg.Command,
		Capture: cfg.Capture,
		Timeout: cfg.Timeout,
		OnStart: func() {
			reporter.Info("Changes detected in %s. Running %s", cfg.Target.Path, cfg.Command.Executable)
		},
	})

	reporter.Verbose("watching %s (recursive: %t, %d director(ies)), debounce %v",
		cfg.Target.Path, cfg.Target.Recursive, source.Watched(), cfg.Debounce)

	summary := &Summary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coalescer.Run(gctx)
	})

	// Single worker: executions never overlap.
	g.Go(func() error {
		for trigger := range coalescer.Triggers() {
			reporter.Verbose("running %s for %d event(s), last %s", run.Command(), trigger.Events, trigger.Last)

			outcome := run.Run(gctx)
			summary.record(outcome)
			reportOutcome(reporter, run.Command(), outcome)
		}
		return nil
	})

	err := g.Wait()

	summary.Events = coalescer.Observed()
	summary.Bursts = coalescer.Emitted()
	summary.Ignored = source.Ignored()
	summary.Duration = time.Since(start)

	return summary, err
}

func reportOutcome(reporter Reporter, command string, outcome runner.Outcome) {
	reporter.Captured("stdout", outcome.Stdout)
	reporter.Captured("stderr", outcome.Stderr)

	switch {
	case outcome.Success:
		reporter.Verbose("%s finished in %v with exit status %d", command, outcome.Duration.Round(time.Millisecond), outcome.ExitCode)
	case errors.Is(outcome.Err, runner.ErrOutputNotText):
		reporter.Error("Could not read the output of %s: %v", command, outcome.Err)
	case errors.Is(outcome.Err, context.Canceled):
		reporter.Verbose("%v", outcome.Err)
	default:
		reporter.Error("Error occurred when command %s was executed: %v", command, outcome.Err)
	}
}

// Describe returns a one-line description of the session settings.
func Describe(cfg *config.Configuration) string {
	mode := "non-recursive"
	if cfg.Target.Recursive {
		mode = "recursive"
	}
	return fmt.Sprintf("Watching %s (%s, debounce %v), running %s on change",
		cfg.Target.Path, mode, cfg.Debounce, cfg.Command.Executable)
}
