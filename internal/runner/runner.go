// Package runner executes the configured command once per trigger and
// reports what happened as an Outcome.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"runwhen/internal/config"
)

// waitDelay bounds how long Wait keeps reading output after the command
// exits or is killed. Background children can otherwise hold the pipes open.
const waitDelay = 500 * time.Millisecond

var (
	// ErrOutputNotText marks an outcome whose captured output is not valid UTF-8.
	ErrOutputNotText = errors.New("command output is not valid UTF-8")

	// ErrTimeout marks an outcome whose command was killed after the configured timeout.
	ErrTimeout = errors.New("command timed out")
)

// Outcome is the result of one execution.
//
// Success means the command was launched and ran to completion; the exit
// code is recorded but does not affect Success. Err is set whenever Success
// is false, and may wrap ErrOutputNotText, ErrTimeout or the spawn error.
type Outcome struct {
	Success  bool
	Stdout   string // Captured stdout (empty when capture is off)
	Stderr   string // Captured stderr (empty when capture is off)
	Err      error
	ExitCode int // -1 if the command never exited normally
	Duration time.Duration
}

// Config contains runner settings.
type Config struct {
	Command config.CommandSpec
	Capture bool          // Capture stdout and stderr into the Outcome
	Timeout time.Duration // Kill the command after this long; 0 means never

	// Stdout and Stderr receive the command's output when Capture is off.
	// They default to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	// OnStart, if set, is called once the command has been launched.
	OnStart func()
}

// Runner launches the configured executable. A Runner runs one command at a
// time; callers serialize Run.
type Runner struct {
	config Config
}

// New creates a Runner.
func New(config Config) *Runner {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}
	return &Runner{config: config}
}

// Command returns the executable this Runner launches.
func (r *Runner) Command() string {
	return r.config.Command.Executable
}

// Run launches the command with no arguments and waits for it to exit.
// Failures are reported in the Outcome, never returned.
func (r *Runner) Run(ctx context.Context) Outcome {
	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	//nolint:gosec // G204: running the user's command is the point
	cmd := exec.CommandContext(runCtx, r.config.Command.Executable)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	if r.config.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = r.config.Stdout
		cmd.Stderr = r.config.Stderr
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{
			Err:      fmt.Errorf("cannot start %s: %w", r.config.Command.Executable, err),
			ExitCode: -1,
			Duration: time.Since(start),
		}
	}
	if r.config.OnStart != nil {
		r.config.OnStart()
	}

	waitErr := cmd.Wait()
	outcome := Outcome{
		Success:  true,
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err := r.failure(ctx, runCtx, waitErr, cmd.ProcessState.Exited()); err != nil {
		outcome.Success = false
		outcome.Err = err
	}

	if r.config.Capture {
		var badStreams []string
		outcome.Stdout = text(stdout.Bytes(), "stdout", &badStreams)
		outcome.Stderr = text(stderr.Bytes(), "stderr", &badStreams)
		if len(badStreams) > 0 && outcome.Err == nil {
			outcome.Success = false
			outcome.Err = fmt.Errorf("%w: %s", ErrOutputNotText, strings.Join(badStreams, ", "))
		}
	}

	return outcome
}

// failure classifies how a launched command ended. A command that exited on
// its own is never blamed on a context that was done by the time Wait returned.
func (r *Runner) failure(ctx, runCtx context.Context, waitErr error, exited bool) error {
	if waitErr == nil {
		return nil
	}
	if exited && (isExit(waitErr) || isDone(waitErr)) {
		return nil
	}
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s interrupted: %w", r.config.Command.Executable, ctx.Err())
	case runCtx.Err() != nil:
		return fmt.Errorf("%w after %v", ErrTimeout, r.config.Timeout)
	case !isExit(waitErr):
		return fmt.Errorf("waiting for %s: %w", r.config.Command.Executable, waitErr)
	}
	return nil
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isExit reports whether err only says the command finished, either with a
// non-zero status or with output still held open by a background child.
func isExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay)
}

// text decodes captured output. Invalid UTF-8 is replaced and the stream
// name is recorded in bad.
func text(b []byte, stream string, bad *[]string) string {
	if utf8.Valid(b) {
		return string(b)
	}
	*bad = append(*bad, stream)
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
