package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrSourceClosed is returned when the raw event stream ends while watching.
var ErrSourceClosed = errors.New("watch source closed")

// Logger receives diagnostic output from the watcher.
type Logger interface {
	Verbose(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Verbose(string, ...interface{}) {}

// Coalescer runs the debounce loop: it merges raw events, watch errors and
// the debounce timer into one select, and emits one Trigger per settled burst.
//
// Triggers are handed to the consumer in order. If the consumer is busy, they
// queue inside the loop, so coalescing never stalls and no trigger is dropped.
type Coalescer struct {
	debouncer *Debouncer
	events    <-chan Event
	errs      <-chan error
	triggers  chan Trigger
	logger    Logger

	observed atomic.Int64
	emitted  atomic.Int64
}

// NewCoalescer creates a Coalescer reading from events and errs.
// A nil logger discards diagnostics.
func NewCoalescer(window time.Duration, events <-chan Event, errs <-chan error, logger Logger) *Coalescer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Coalescer{
		debouncer: NewDebouncer(window),
		events:    events,
		errs:      errs,
		triggers:  make(chan Trigger),
		logger:    logger,
	}
}

// Triggers returns the channel of settled bursts. It is closed when Run returns.
func (c *Coalescer) Triggers() <-chan Trigger {
	return c.triggers
}

// Run blocks until ctx is cancelled (returning nil) or the source fails
// (returning the watch error). Pending and queued triggers are discarded on return.
func (c *Coalescer) Run(ctx context.Context) error {
	defer close(c.triggers)
	c.logger.Verbose("debounce window %v", c.debouncer.GetWindow())

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var timerC <-chan time.Time
	var queue []Trigger

	settle := func(now time.Time) {
		trigger, ok := c.debouncer.Expire(now)
		if !ok {
			// Not due yet: re-arm for the remainder.
			if deadline, pending := c.debouncer.Deadline(); pending {
				timer.Reset(deadline.Sub(now))
				timerC = timer.C
			}
			return
		}
		timer.Stop()
		timerC = nil
		queue = append(queue, trigger)
		c.emitted.Add(1)
		c.logger.Verbose("burst settled: %d event(s), last %s", trigger.Events, trigger.Last)
	}

	for {
		var out chan<- Trigger
		var next Trigger
		if len(queue) > 0 {
			out = c.triggers
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			if dropped := c.debouncer.Cancel(); dropped > 0 {
				c.logger.Verbose("discarding %d unsettled event(s)", dropped)
			}
			return nil

		case ev, ok := <-c.events:
			if !ok {
				return ErrSourceClosed
			}
			c.observed.Add(1)
			deadline := c.debouncer.Observe(ev)
			c.logger.Verbose("%s %s (%d event(s) in burst)", ev.Op, ev.Path, c.debouncer.PendingEvents())

			now := time.Now()
			if !now.Before(deadline) {
				settle(now)
				continue
			}
			timer.Reset(deadline.Sub(now))
			timerC = timer.C

		case err, ok := <-c.errs:
			if !ok {
				c.errs = nil
				continue
			}
			return fmt.Errorf("watch failed: %w", err)

		case now := <-timerC:
			settle(now)

		case out <- next:
			queue = queue[1:]
		}
	}
}

// Observed returns the number of raw events received so far.
func (c *Coalescer) Observed() int {
	return int(c.observed.Load())
}

// Emitted returns the number of triggers produced so far.
func (c *Coalescer) Emitted() int {
	return int(c.emitted.Load())
}
