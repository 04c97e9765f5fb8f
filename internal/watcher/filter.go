// Package watcher turns raw filesystem notifications into debounced triggers.
package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns returns the patterns for editor scratch files whose
// changes should never trigger the command.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.swp",   // vim swap files
		"*.swx",   // vim swap files
		"*~",      // backup files
		".#*",     // emacs lock files
		"4913",    // vim write-permission check file
		"*.tmp",   // generic temp files
		".~lock*", // LibreOffice lock files
	}
}

// FileFilter handles filtering of event paths based on ignore patterns.
type FileFilter struct {
	root     string
	patterns []string
}

// NewFileFilter creates a new FileFilter for paths under root.
// A nil or empty pattern list ignores nothing.
func NewFileFilter(root string, patterns []string) *FileFilter {
	return &FileFilter{
		root:     root,
		patterns: patterns,
	}
}

// ShouldIgnore checks if a path matches any of the ignore patterns.
// Patterns use doublestar glob syntax and are tried against both the base
// name and the slash-separated path relative to the filter root:
//   - * matches any sequence of non-separator characters
//   - ** matches any number of directories
//   - ? matches any single non-separator character
//   - [abc] / [a-z] match a character class
//   - {a,b} matches either alternative
//
// The root itself is never ignored.
func (f *FileFilter) ShouldIgnore(path string) bool {
	if len(f.patterns) == 0 || filepath.Clean(path) == f.root {
		return false
	}

	filename := filepath.Base(path)
	rel := filename
	if f.root != "" {
		if r, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
	}

	for _, pattern := range f.patterns {
		if matched, err := doublestar.Match(pattern, filename); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}

		// Extension-style patterns like ".tmp" also match as a suffix
		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[{") {
			if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}

// GetPatterns returns the current ignore patterns.
func (f *FileFilter) GetPatterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
