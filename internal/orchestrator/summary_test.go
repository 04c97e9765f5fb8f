package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"runwhen/internal/runner"
)

func TestSummary_Empty(t *testing.T) {
	summary := &Summary{}

	if summary.HasErrors() {
		t.Error("empty summary should have no errors")
	}
	want := "Watched for 0s: 0 events (0 ignored), 0 bursts, 0 runs: 0 completed, 0 failed"
	if got := summary.PrintSummary(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSummary_Record(t *testing.T) {
	summary := &Summary{}

	summary.record(runner.Outcome{Success: true, ExitCode: 0})
	summary.record(runner.Outcome{Success: true, ExitCode: 2})
	summary.record(runner.Outcome{Err: errors.New("cannot start")})

	if summary.Triggers != 3 {
		t.Errorf("expected 3 triggers, got %d", summary.Triggers)
	}
	if summary.Succeeded != 2 {
		t.Errorf("non-zero exit still counts as completed: expected 2, got %d", summary.Succeeded)
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", summary.Failed)
	}
	if !summary.HasErrors() {
		t.Error("expected HasErrors with a failed run")
	}
}

func TestSummary_PrintSummary(t *testing.T) {
	summary := &Summary{
		Events:    12,
		Ignored:   3,
		Bursts:    5,
		Triggers:  4,
		Succeeded: 3,
		Failed:    1,
		Duration:  62*time.Second + 400*time.Millisecond,
	}

	want := "Watched for 1m2s: 12 events (3 ignored), 5 bursts, 4 runs: 3 completed, 1 failed"
	if got := summary.PrintSummary(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSummary_RecordProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every outcome is counted exactly once", prop.ForAll(
		func(results []bool) bool {
			summary := &Summary{}
			want := 0
			for _, ok := range results {
				outcome := runner.Outcome{Success: ok}
				if !ok {
					outcome.Err = errors.New("failed")
				} else {
					want++
				}
				summary.record(outcome)
			}
			return summary.Triggers == len(results) &&
				summary.Succeeded == want &&
				summary.Succeeded+summary.Failed == summary.Triggers &&
				summary.HasErrors() == (summary.Failed > 0)
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
