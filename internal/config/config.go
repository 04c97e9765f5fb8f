// Package config handles configuration parsing and validation for runwhen.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDebouncePeriod is the debounce window used when none is given.
const DefaultDebouncePeriod = "600ms"

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	InvalidDuration ConfigErrorType = "INVALID_DURATION"
	PathNotFound    ConfigErrorType = "PATH_NOT_FOUND"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred while building the configuration.
// Every ConfigError is fatal at startup.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case InvalidDuration:
		return fmt.Sprintf("invalid debounce period: %s", e.Message)
	case PathNotFound:
		if e.Message != "" {
			return fmt.Sprintf("cannot watch %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("cannot watch %s: no such file or directory", e.Path)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// WatchTarget identifies what is observed.
type WatchTarget struct {
	Path      string
	Recursive bool
}

// CommandSpec is the executable run once per settled burst. Arguments are not supported.
type CommandSpec struct {
	Executable string
}

// Configuration holds all settings for a watch session.
// It is read-only once the watch starts.
type Configuration struct {
	Target   WatchTarget
	Debounce time.Duration
	Command  CommandSpec

	IgnorePatterns []string      // Globs for paths whose changes never trigger the command
	Capture        bool          // Capture stdout/stderr of the command for reporting
	Timeout        time.Duration // Kill the command after this long; zero means never
	Verbose        bool
}

// Options is the raw, unvalidated input from the command line.
type Options struct {
	DebouncePeriod string
	Recursive      bool
	File           string
	CommandFile    string
	Ignore         []string
	Capture        bool
	Timeout        time.Duration
	Verbose        bool
}

// DefaultOptions returns Options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		DebouncePeriod: DefaultDebouncePeriod,
		Capture:        true,
	}
}

// Load turns command-line options into a validated Configuration.
// Any returned error is a *ConfigError.
func Load(opts Options) (*Configuration, error) {
	debounce, err := ParseDebounce(opts.DebouncePeriod)
	if err != nil {
		return nil, err
	}

	cfg := &Configuration{
		Target: WatchTarget{
			Path:      opts.File,
			Recursive: opts.Recursive,
		},
		Debounce:       debounce,
		Command:        CommandSpec{Executable: opts.CommandFile},
		IgnorePatterns: opts.Ignore,
		Capture:        opts.Capture,
		Timeout:        opts.Timeout,
		Verbose:        opts.Verbose,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve the target so that event paths and the root compare equal.
	absPath, err := filepath.Abs(cfg.Target.Path)
	if err != nil {
		return nil, &ConfigError{
			Type:    PathNotFound,
			Path:    cfg.Target.Path,
			Message: err.Error(),
		}
	}
	cfg.Target.Path = absPath

	return cfg, nil
}

// Validate checks that the configuration has all required fields
// and that the watch target exists.
func (c *Configuration) Validate() error {
	result := ValidateConfig(c)
	if result.Valid {
		return nil
	}

	first := result.Errors[0]
	switch first.Type {
	case PathNotFound:
		return &ConfigError{
			Type:    PathNotFound,
			Path:    c.Target.Path,
			Message: first.Message,
		}
	case InvalidDuration:
		return &ConfigError{
			Type:    InvalidDuration,
			Message: first.Message,
		}
	}
	return &ConfigError{
		Type:    ValidationError,
		Message: first.Field + ": " + first.Message,
	}
}

// targetInfo stats the watch target, following symlinks.
func targetInfo(path string) (os.FileInfo, error) {
	return os.Stat(path)
}
