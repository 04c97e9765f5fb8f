package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

const (
	fieldFile        = "file"
	fieldCommandFile = "command-file"
	fieldDebounce    = "debounce-period"
	fieldTimeout     = "timeout"
	fieldIgnore      = "ignore"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Flag with the issue (e.g., "file")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
	Type     ConfigErrorType
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	var findings []ConfigValidationError
	findings = append(findings, ValidateTarget(cfg)...)
	findings = append(findings, ValidateCommand(cfg)...)
	findings = append(findings, ValidateTiming(cfg)...)
	findings = append(findings, ValidateIgnorePatterns(cfg)...)

	for _, f := range findings {
		if f.Severity == SeverityError {
			result.Errors = append(result.Errors, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateTarget checks that the watch target is given and can be watched.
func ValidateTarget(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.Target.Path == "" {
		return append(errors, ConfigValidationError{
			Field:    fieldFile,
			Message:  "a file or directory to watch is required",
			Severity: SeverityError,
			Type:     ValidationError,
		})
	}

	info, err := targetInfo(cfg.Target.Path)
	if err != nil {
		msg := "error accessing path: " + err.Error()
		if os.IsNotExist(err) {
			msg = "no such file or directory"
		} else if os.IsPermission(err) {
			msg = "path is not accessible"
		}
		return append(errors, ConfigValidationError{
			Field:    fieldFile,
			Message:  msg,
			Severity: SeverityError,
			Type:     PathNotFound,
		})
	}

	if cfg.Target.Recursive && !info.IsDir() {
		errors = append(errors, ConfigValidationError{
			Field:    fieldFile,
			Message:  "recursive has no effect when watching a single file: " + cfg.Target.Path,
			Severity: SeverityWarning,
		})
	}

	return errors
}

// ValidateCommand checks the command to run. A missing or non-executable
// command is only a warning: launch failures are reported per trigger.
func ValidateCommand(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.Command.Executable == "" {
		return append(errors, ConfigValidationError{
			Field:    fieldCommandFile,
			Message:  "an executable to run is required",
			Severity: SeverityError,
			Type:     ValidationError,
		})
	}

	path := cfg.Command.Executable
	if !strings.ContainsRune(path, filepath.Separator) {
		// Bare names are resolved through PATH at launch.
		if found, err := exec.LookPath(path); err == nil {
			path = found
		}
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		errors = append(errors, ConfigValidationError{
			Field:    fieldCommandFile,
			Message:  "executable not found (it will be looked up again on every change): " + cfg.Command.Executable,
			Severity: SeverityWarning,
		})
	case info.IsDir():
		errors = append(errors, ConfigValidationError{
			Field:    fieldCommandFile,
			Message:  "executable is a directory: " + cfg.Command.Executable,
			Severity: SeverityWarning,
		})
	case info.Mode().Perm()&0111 == 0:
		errors = append(errors, ConfigValidationError{
			Field:    fieldCommandFile,
			Message:  "file is not executable: " + cfg.Command.Executable,
			Severity: SeverityWarning,
		})
	}

	return errors
}

// ValidateTiming checks the debounce window and command timeout.
func ValidateTiming(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.Debounce < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    fieldDebounce,
			Message:  "debounce period must not be negative",
			Severity: SeverityError,
			Type:     InvalidDuration,
		})
	}
	if cfg.Timeout < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    fieldTimeout,
			Message:  "timeout must not be negative",
			Severity: SeverityError,
			Type:     ValidationError,
		})
	}

	return errors
}

// ValidateIgnorePatterns checks that every ignore pattern is a valid glob.
func ValidateIgnorePatterns(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, pattern := range cfg.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			errors = append(errors, ConfigValidationError{
				Field:    formatField(fieldIgnore, i),
				Message:  "invalid glob pattern: " + pattern,
				Severity: SeverityError,
				Type:     ValidationError,
			})
		}
	}

	return errors
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}
