package orchestrator

import (
	"fmt"
	"time"

	"runwhen/internal/runner"
)

// Summary contains statistics from a watch session.
type Summary struct {
	Events    int           // Raw events that reached the debounce loop
	Ignored   int           // Raw events dropped by ignore patterns
	Bursts    int           // Settled bursts; queued ones still unrun at shutdown are not in Triggers
	Triggers  int           // Bursts that ran the command
	Succeeded int           // Runs that completed, whatever their exit status
	Failed    int           // Runs that could not start, timed out or produced unreadable output
	Duration  time.Duration // Total session time
}

// record counts one execution outcome.
func (s *Summary) record(outcome runner.Outcome) {
	s.Triggers++
	if outcome.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// HasErrors returns true if any run failed.
func (s *Summary) HasErrors() bool {
	return s.Failed > 0
}

// PrintSummary returns a formatted summary string.
func (s *Summary) PrintSummary() string {
	return fmt.Sprintf("Watched for %v: %d events (%d ignored), %d bursts, %d runs: %d completed, %d failed",
		s.Duration.Round(time.Second), s.Events, s.Ignored, s.Bursts, s.Triggers, s.Succeeded, s.Failed)
}
