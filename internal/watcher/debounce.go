package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a raw change notification. Only its arrival time matters to the
// debouncer; Path and Op are carried for reporting.
type Event struct {
	Path string
	Op   fsnotify.Op
	At   time.Time
}

// Trigger signals that a burst of changes has settled.
type Trigger struct {
	At     time.Time // When the burst settled (last event + window)
	Events int       // Number of raw events folded into the burst
	Last   string    // Path of the last event in the burst
}

// State is the debouncer state.
type State int

const (
	Idle State = iota
	PendingBurst
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingBurst:
		return "pending"
	default:
		return "unknown"
	}
}

// Debouncer is a trailing-edge debounce state machine with a single pending
// deadline. It holds no timers and no locks: the caller owns the clock and
// must confine a Debouncer to one goroutine.
type Debouncer struct {
	window   time.Duration
	state    State
	deadline time.Time
	events   int
	last     string
}

// NewDebouncer creates a Debouncer with the given window.
// A zero window settles every event on its own.
func NewDebouncer(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{window: window}
}

// Observe folds an event into the current burst, starting one if idle, and
// returns the new deadline: the event's arrival plus the window. The deadline
// never moves backwards.
func (d *Debouncer) Observe(ev Event) time.Time {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	deadline := at.Add(d.window)
	if d.state == Idle || deadline.After(d.deadline) {
		d.deadline = deadline
	}
	d.state = PendingBurst
	d.events++
	d.last = ev.Path
	return d.deadline
}

// Expire emits the pending burst as a Trigger if now has reached its deadline,
// and returns to Idle. It reports false if nothing is pending or the
// deadline is still in the future.
func (d *Debouncer) Expire(now time.Time) (Trigger, bool) {
	if d.state != PendingBurst || now.Before(d.deadline) {
		return Trigger{}, false
	}

	trigger := Trigger{
		At:     d.deadline,
		Events: d.events,
		Last:   d.last,
	}
	d.reset()
	return trigger, true
}

// Cancel drops the pending burst without emitting a trigger.
// It returns the number of events dropped.
func (d *Debouncer) Cancel() int {
	dropped := d.events
	d.reset()
	return dropped
}

func (d *Debouncer) reset() {
	d.state = Idle
	d.deadline = time.Time{}
	d.events = 0
	d.last = ""
}

// Deadline returns the pending deadline, if any.
func (d *Debouncer) Deadline() (time.Time, bool) {
	return d.deadline, d.state == PendingBurst
}

// State returns the current state.
func (d *Debouncer) State() State {
	return d.state
}

// PendingEvents returns the number of events in the pending burst.
func (d *Debouncer) PendingEvents() int {
	return d.events
}

// GetWindow returns the configured debounce window.
func (d *Debouncer) GetWindow() time.Duration {
	return d.window
}
