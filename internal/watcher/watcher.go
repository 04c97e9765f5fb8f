package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrTargetGone is returned when the watched path is removed or renamed away.
var ErrTargetGone = errors.New("watched path no longer exists")

// SourceConfig contains raw watch source settings.
type SourceConfig struct {
	Path           string   // File or directory to watch
	Recursive      bool     // Also watch every directory below Path
	IgnorePatterns []string // Globs for paths whose events are dropped
}

// Source subscribes to filesystem notifications for one target and forwards
// them, uncoalesced, as Events. Watch failures are sent on Errors.
type Source struct {
	config    SourceConfig
	root      string
	isDir     bool
	fsWatcher *fsnotify.Watcher
	filter    *FileFilter
	logger    Logger

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	watched atomic.Int64
	ignored atomic.Int64
}

// NewSource creates a Source. It does not touch the filesystem until Start.
func NewSource(config SourceConfig, logger Logger) *Source {
	if logger == nil {
		logger = nopLogger{}
	}
	root := filepath.Clean(config.Path)
	return &Source{
		config: config,
		root:   root,
		filter: NewFileFilter(root, config.IgnorePatterns),
		logger: logger,
		events: make(chan Event),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the target and begins forwarding events.
// It returns an error if the target cannot be watched.
func (s *Source) Start() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", s.root, err)
	}
	s.isDir = info.IsDir()

	s.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if s.isDir && s.config.Recursive {
		err = s.addTree(s.root)
	} else {
		err = s.add(s.root)
	}
	if err != nil {
		s.fsWatcher.Close()
		return fmt.Errorf("cannot watch %s: %w", s.root, err)
	}
	if patterns := s.filter.GetPatterns(); len(patterns) > 0 {
		s.logger.Verbose("ignoring %s", strings.Join(patterns, " "))
	}

	s.wg.Add(1)
	go s.forward()

	return nil
}

// Stop unsubscribes and waits for the forwarding goroutine to exit.
func (s *Source) Stop() {
	s.once.Do(func() {
		close(s.done)
		if s.fsWatcher != nil {
			s.fsWatcher.Close()
		}
		s.wg.Wait()
	})
}

// Events returns the raw event stream.
func (s *Source) Events() <-chan Event {
	return s.events
}

// Errors returns the stream of fatal watch errors.
func (s *Source) Errors() <-chan error {
	return s.errors
}

// Watched returns the number of watch subscriptions made, re-watches included.
func (s *Source) Watched() int {
	return int(s.watched.Load())
}

// Ignored returns the number of events dropped by the ignore filter.
func (s *Source) Ignored() int {
	return int(s.ignored.Load())
}

// forward handles notifications from fsnotify.
func (s *Source) forward() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				s.fail(ErrSourceClosed)
				return
			}
			if err := s.handle(event); err != nil {
				s.fail(err)
				return
			}
		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				s.fail(ErrSourceClosed)
				return
			}
			s.fail(err)
			return
		}
	}
}

// handle turns one fsnotify event into an Event, or into a fatal error when
// the watched root has disappeared.
func (s *Source) handle(event fsnotify.Event) error {
	name := filepath.Clean(event.Name)

	// Permission-only changes carry no content change.
	if event.Op == fsnotify.Chmod {
		return nil
	}

	if name == s.root && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, err := os.Stat(s.root); err != nil {
			return fmt.Errorf("%w: %s", ErrTargetGone, s.root)
		}
		// Replaced in place (e.g. an atomic save): the old subscription died with the old inode.
		if err := s.add(s.root); err != nil {
			return fmt.Errorf("cannot re-watch %s: %w", s.root, err)
		}
		s.logger.Verbose("re-watching replaced target %s", s.root)
	}

	if s.filter.ShouldIgnore(name) {
		s.ignored.Add(1)
		s.logger.Verbose("ignoring %s %s", event.Op, name)
		return nil
	}

	if s.config.Recursive && s.isDir && event.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := s.addTree(name); err != nil {
				s.logger.Verbose("cannot watch new directory %s: %v", name, err)
			}
		}
	}

	select {
	case s.events <- Event{Path: name, Op: event.Op, At: time.Now()}:
	case <-s.done:
	}
	return nil
}

// fail reports a fatal error without blocking. Errors raised while
// stopping are dropped.
func (s *Source) fail(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.errors <- err:
	default:
	}
}

func (s *Source) add(path string) error {
	if err := s.fsWatcher.Add(path); err != nil {
		return err
	}
	s.watched.Add(1)
	return nil
}

// addTree subscribes to dir and every directory below it. Ignored
// directories are skipped along with their contents.
func (s *Source) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Vanished or unreadable subdirectories are skipped.
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != s.root && s.filter.ShouldIgnore(path) {
			return filepath.SkipDir
		}
		return s.add(path)
	})
}
