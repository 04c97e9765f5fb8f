package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"runwhen/internal/config"
)

// writeScript creates an executable shell script in a temp directory.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmd.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func newRunner(executable string, capture bool) *Runner {
	return New(Config{
		Command: config.CommandSpec{Executable: executable},
		Capture: capture,
	})
}

func TestRun_MissingExecutable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	r := newRunner(missing, true)

	outcome := r.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure for a missing executable")
	}
	if !errors.Is(outcome.Err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", outcome.Err)
	}
	if !strings.Contains(outcome.Err.Error(), missing) {
		t.Errorf("error should name the executable, got %q", outcome.Err)
	}
	if outcome.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", outcome.ExitCode)
	}
}

func TestRun_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("echo hi\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	outcome := newRunner(path, true).Run(context.Background())

	if outcome.Success || outcome.Err == nil {
		t.Errorf("expected failure for a non-executable file, got %+v", outcome)
	}
}

func TestRun_RepeatedSpawnFailuresAreIndependent(t *testing.T) {
	r := newRunner(filepath.Join(t.TempDir(), "missing"), true)

	for i := 0; i < 2; i++ {
		if outcome := r.Run(context.Background()); outcome.Success {
			t.Fatalf("run %d: expected failure", i)
		}
	}
}

func TestRun_NonZeroExitIsSuccess(t *testing.T) {
	r := newRunner(writeScript(t, "exit 3"), true)

	outcome := r.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("non-zero exit should still be a completed run, got %v", outcome.Err)
	}
	if outcome.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", outcome.ExitCode)
	}
	if outcome.Err != nil {
		t.Errorf("expected no error, got %v", outcome.Err)
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	r := newRunner(writeScript(t, "echo built\necho 'warning: x' >&2"), true)

	outcome := r.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Stdout != "built\n" {
		t.Errorf("unexpected stdout %q", outcome.Stdout)
	}
	if outcome.Stderr != "warning: x\n" {
		t.Errorf("unexpected stderr %q", outcome.Stderr)
	}
	if outcome.Duration <= 0 {
		t.Errorf("expected a positive duration, got %v", outcome.Duration)
	}
}

func TestRun_InvalidUTF8Output(t *testing.T) {
	r := newRunner(writeScript(t, `printf 'ok\377\n'`), true)

	outcome := r.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected invalid output to fail the outcome")
	}
	if !errors.Is(outcome.Err, ErrOutputNotText) {
		t.Fatalf("expected ErrOutputNotText, got %v", outcome.Err)
	}
	if !strings.Contains(outcome.Err.Error(), "stdout") {
		t.Errorf("error should name the stream, got %q", outcome.Err)
	}
	if !strings.HasPrefix(outcome.Stdout, "ok�") {
		t.Errorf("expected replaced text, got %q", outcome.Stdout)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code should still be recorded, got %d", outcome.ExitCode)
	}
}

func TestRun_PassthroughWhenNotCapturing(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := New(Config{
		Command: config.CommandSpec{Executable: writeScript(t, "echo out\necho err >&2")},
		Stdout:  &stdout,
		Stderr:  &stderr,
	})

	outcome := r.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Stdout != "" || outcome.Stderr != "" {
		t.Errorf("outcome should not hold output when not capturing, got %+v", outcome)
	}
	if stdout.String() != "out\n" || stderr.String() != "err\n" {
		t.Errorf("output not passed through: stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestRun_Timeout(t *testing.T) {
	r := New(Config{
		Command: config.CommandSpec{Executable: writeScript(t, "sleep 10")},
		Capture: true,
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	outcome := r.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected a timed out command to fail")
	}
	if !errors.Is(outcome.Err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", outcome.Err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout did not stop the command, took %v", elapsed)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(writeScript(t, "sleep 10"), true)

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome := r.Run(ctx)

	if outcome.Success {
		t.Fatal("expected an interrupted command to fail")
	}
	if !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", outcome.Err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation did not stop the command, took %v", elapsed)
	}
}

func TestRunner_Command(t *testing.T) {
	if got := newRunner("/usr/bin/make", false).Command(); got != "/usr/bin/make" {
		t.Errorf("expected /usr/bin/make, got %s", got)
	}
}

func TestRun_OnStart(t *testing.T) {
	started := 0
	r := New(Config{
		Command: config.CommandSpec{Executable: writeScript(t, "exit 0")},
		Capture: true,
		OnStart: func() { started++ },
	})

	if outcome := r.Run(context.Background()); !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if started != 1 {
		t.Errorf("expected OnStart once, got %d", started)
	}
}

func TestRun_OnStartSkippedOnSpawnFailure(t *testing.T) {
	started := false
	r := New(Config{
		Command: config.CommandSpec{Executable: filepath.Join(t.TempDir(), "missing")},
		OnStart: func() { started = true },
	})

	r.Run(context.Background())

	if started {
		t.Error("OnStart should not run when the command cannot be launched")
	}
}

func TestRunner_FailureClassification(t *testing.T) {
	r := New(Config{Command: config.CommandSpec{Executable: "/bin/build"}, Timeout: time.Second})

	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithTimeout(context.Background(), 0)
	defer cancelExpired()

	killed := errors.New("signal: killed")

	tests := []struct {
		name    string
		ctx     context.Context
		runCtx  context.Context
		waitErr error
		exited  bool
		want    error // nil means not a failure
	}{
		{"clean exit", live, live, nil, true, nil},
		{"clean exit before interrupt", cancelled, cancelled, nil, true, nil},
		{"non-zero exit before interrupt", cancelled, cancelled, &exec.ExitError{}, true, nil},
		{"exit racing the interrupt", cancelled, cancelled, context.Canceled, true, nil},
		{"output held open", live, live, exec.ErrWaitDelay, true, nil},
		{"killed by interrupt", cancelled, cancelled, killed, false, context.Canceled},
		{"killed by timeout", live, expired, killed, false, ErrTimeout},
		{"killed by another signal", live, live, &exec.ExitError{}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.failure(tt.ctx, tt.runCtx, tt.waitErr, tt.exited)
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no failure, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
