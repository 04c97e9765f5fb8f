// Package output handles CLI output formatting for runwhen, including verbose mode
// and coloured level prefixes when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal; colours are only used on a TTY
}

// Output handles formatted, leveled output. It is safe for concurrent use.
type Output struct {
	config Config
	mu     sync.Mutex

	info    *color.Color
	warn    *color.Color
	err     *color.Color
	debug   *color.Color
	capture *color.Color
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}

	o := &Output{
		config:  config,
		info:    color.New(color.FgBlue),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		debug:   color.New(color.FgCyan),
		capture: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{o.info, o.warn, o.err, o.debug, o.capture} {
		if config.IsTTY {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// DefaultConfig returns a Config with sensible defaults and TTY detection.
func DefaultConfig() Config {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     isTTY,
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.println(o.config.Writer, o.debug.Sprint("[DEBUG] "), fmt.Sprintf(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.println(o.config.Writer, o.info.Sprint("[*] "), fmt.Sprintf(format, args...))
}

// Warn prints a warning to stderr.
func (o *Output) Warn(format string, args ...interface{}) {
	o.println(o.config.ErrWriter, o.warn.Sprint("[!] "), fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.println(o.config.ErrWriter, o.err.Sprint("[x] "), fmt.Sprintf(format, args...))
}

// Captured prints text captured from a command, one indented line per
// line of text, labelled with the stream it came from. Empty text prints nothing.
func (o *Output) Captured(stream string, text string) {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return
	}
	prefix := o.capture.Sprint("  [" + stream + "] ")
	o.println(o.config.Writer, prefix, text)
}

// println writes msg with prefix on every line, holding the lock so that
// lines from concurrent callers never interleave.
func (o *Output) println(w io.Writer, prefix string, msg string) {
	msg = strings.TrimSuffix(msg, "\n")
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, line := range strings.Split(msg, "\n") {
		fmt.Fprintln(w, prefix+line)
	}
}
