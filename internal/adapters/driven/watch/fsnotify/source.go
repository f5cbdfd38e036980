// Package fsnotify provides a filesystem event source with per-path
// debouncing on top of the fsnotify library.
//
// Editors and sync tools emit bursts of raw events for a single save
// (create, truncate, several writes, chmod). Each path gets its own
// debounce timer; the burst collapses into one event carrying the
// final state once the path has been quiet for the debounce window.
package fsnotify

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	fswatch "github.com/fsnotify/fsnotify"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.EventSource = (*Source)(nil)

// eventBuffer bounds how many debounced events can queue before the
// watcher goroutine blocks.
const eventBuffer = 64

// Config holds configuration for the event source.
type Config struct {
	// DebounceWindow is the quiet period before a path's events fire.
	DebounceWindow time.Duration

	// IncludePatterns restrict watching to matching paths (empty = all).
	IncludePatterns []string

	// ExcludePatterns skip matching paths.
	ExcludePatterns []string
}

// pending tracks the coalesced state of one path inside the window.
type pending struct {
	timer *time.Timer
	event domain.FileEvent
}

// Source streams debounced filesystem events.
type Source struct {
	cfg     Config
	watcher *fswatch.Watcher

	mu      sync.Mutex
	pend    map[string]*pending
	out     chan domain.FileEvent
	done    chan struct{}
	closeFn sync.Once
}

// New creates an event source. A zero debounce window falls back to the
// domain default.
func New(cfg Config) *Source {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = domain.DefaultDebounceWindow
	}
	return &Source{
		cfg:  cfg,
		pend: make(map[string]*pending),
		out:  make(chan domain.FileEvent, eventBuffer),
		done: make(chan struct{}),
	}
}

// Subscribe starts watching the given roots and returns the event
// channel. Directories created under a recursive root after the
// subscription begins are picked up automatically.
func (s *Source) Subscribe(ctx context.Context, roots []string, recursive bool) (<-chan domain.FileEvent, error) {
	w, err := fswatch.NewWatcher()
	if err != nil {
		return nil, err
	}
	s.watcher = w

	for _, root := range roots {
		if recursive {
			if err := addDirsRecursive(w, root); err != nil {
				w.Close()
				return nil, err
			}
		} else if err := w.Add(root); err != nil {
			w.Close()
			return nil, err
		}
	}

	go s.run(ctx, recursive)
	return s.out, nil
}

// Close stops watching and releases resources.
func (s *Source) Close() error {
	var err error
	s.closeFn.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

func (s *Source) run(ctx context.Context, recursive bool) {
	defer func() {
		s.mu.Lock()
		for _, p := range s.pend {
			p.timer.Stop()
		}
		s.pend = make(map[string]*pending)
		s.mu.Unlock()
		close(s.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev, recursive)

		case watchErr, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", watchErr)
		}
	}
}

func (s *Source) handle(ev fswatch.Event, recursive bool) {
	path := ev.Name

	// New directories under a recursive root join the watch list, and
	// files already inside them are announced as created.
	if recursive && ev.Op&fswatch.Create != 0 {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(s.watcher, path); addErr != nil {
				logger.Warn("watch: add new dir %s: %v", path, addErr)
				return
			}
			logger.Debug("watch: watching new dir %s", path)
			s.announceDir(path)
			return
		}
	}

	if !s.matches(path) {
		return
	}

	switch {
	case ev.Op&fswatch.Create != 0:
		s.schedule(path, domain.FileCreated)
	case ev.Op&fswatch.Write != 0:
		s.schedule(path, domain.FileModified)
	case ev.Op&fswatch.Remove != 0:
		s.schedule(path, domain.FileDeleted)
	case ev.Op&fswatch.Rename != 0:
		// Rename fires on the OLD path only; any new path inside a
		// watched dir arrives as its own Create. Move detection by
		// content hash happens downstream.
		s.schedule(path, domain.FileDeleted)
	}
}

// schedule coalesces an event into the path's debounce window.
func (s *Source) schedule(path string, eventType domain.FileEventType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pend[path]; ok {
		p.event = coalesce(p.event, eventType)
		p.event.At = time.Now()
		p.timer.Reset(s.cfg.DebounceWindow)
		return
	}

	p := &pending{
		event: domain.FileEvent{Type: eventType, Path: path, At: time.Now()},
	}
	p.timer = time.AfterFunc(s.cfg.DebounceWindow, func() {
		s.fire(path)
	})
	s.pend[path] = p
}

// fire emits the coalesced event once the window has elapsed.
func (s *Source) fire(path string) {
	s.mu.Lock()
	p, ok := s.pend[path]
	delete(s.pend, path)
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case s.out <- p.event:
	case <-s.done:
	}
}

// coalesce folds a new raw event into the pending one. The final state
// wins, except that a create followed by writes is still a create.
func coalesce(current domain.FileEvent, next domain.FileEventType) domain.FileEvent {
	switch {
	case next == domain.FileDeleted:
		current.Type = domain.FileDeleted
	case current.Type == domain.FileDeleted && next == domain.FileCreated:
		// Deleted then recreated within the window: a modification.
		current.Type = domain.FileModified
	case current.Type == domain.FileCreated:
		// keep created
	default:
		current.Type = next
	}
	return current
}

// announceDir schedules create events for files already present in a
// directory that just appeared (e.g. moved in wholesale).
func (s *Source) announceDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if s.matches(path) {
			s.schedule(path, domain.FileCreated)
		}
		return nil
	})
}

// matches applies include and exclude patterns against the base name
// and the full path.
func (s *Source) matches(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range s.cfg.ExcludePatterns {
		if matchPattern(pattern, path, base) {
			return false
		}
	}

	if len(s.cfg.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range s.cfg.IncludePatterns {
		if matchPattern(pattern, path, base) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path, base string) bool {
	if ok, _ := filepath.Match(pattern, base); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, path)
	return ok
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fswatch.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
