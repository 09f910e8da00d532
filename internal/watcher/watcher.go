// Package watcher turns file system notifications for a source tree into a
// single stream of tagged events. The stream starts with an Add for every
// file already present, followed by ScanComplete, followed by live events.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/htmlc/internal/errors"
	"github.com/conneroisu/htmlc/internal/logging"
)

// EventType represents the type of file change
type EventType int

const (
	EventAdd EventType = iota
	EventChange
	EventUnlink
	EventScanComplete
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventChange:
		return "change"
	case EventUnlink:
		return "unlink"
	case EventScanComplete:
		return "ready"
	default:
		return "unknown"
	}
}

// Event is one entry of the watch stream. Path is empty for ScanComplete.
type Event struct {
	Type EventType
	Path string
}

// FileFilter determines if a path should be watched
type FileFilter func(path string) bool

// FileWatcher watches a directory tree and publishes its events on a channel.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	filters []FileFilter
	events  chan Event
	logger  logging.Logger
	mutex   sync.RWMutex
	started bool
}

// NewFileWatcher creates a watcher for root. Version control and dependency
// directories are skipped by default.
func NewFileWatcher(root string, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIO(err, "WATCH_FAILED", "cannot create file watcher", root)
	}

	return &FileWatcher{
		watcher: watcher,
		root:    filepath.Clean(root),
		filters: []FileFilter{NoGitFilter, NoNodeModulesFilter},
		events:  make(chan Event, 64),
		logger:  logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter. Paths rejected by any filter are neither
// watched nor reported.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// Events returns the event stream. It is closed once the context passed to
// Start is done.
func (fw *FileWatcher) Events() <-chan Event {
	return fw.events
}

// Start registers watches on the whole tree and begins publishing events.
// Watches are in place before Start returns, so changes made afterwards are
// never missed.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mutex.Lock()
	if fw.started {
		fw.mutex.Unlock()
		return errors.NewInternalError("WATCH_STARTED", "watcher already started", nil)
	}
	fw.started = true
	fw.mutex.Unlock()

	if err := fw.AddRecursive(fw.root); err != nil {
		return err
	}

	go func() {
		defer close(fw.events)

		if !fw.scan(ctx, fw.root) {
			return
		}
		if !fw.emit(ctx, Event{Type: EventScanComplete}) {
			return
		}
		fw.watchLoop(ctx)
	}()

	return nil
}

// Stop releases the underlying notification handles.
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}

// AddRecursive adds a directory and all subdirectories to watch
func (fw *FileWatcher) AddRecursive(root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if !fw.accept(path) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
	if err != nil {
		return errors.WrapIO(err, "WATCH_FAILED", "cannot watch directory", root)
	}
	return nil
}

// scan emits an Add for every accepted file below dir. It reports false when
// the context ended first.
func (fw *FileWatcher) scan(ctx context.Context, dir string) bool {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fw.accept(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		fw.logger.Warn(ctx, err, "Failed to scan directory", "dir", dir)
	}

	for _, path := range files {
		if !fw.emit(ctx, Event{Type: EventAdd, Path: path}) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.handleFsnotifyEvent(ctx, event) {
				return
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) bool {
	path := event.Name
	if !fw.accept(path) {
		return true
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			// Already gone again; the Remove that follows reports it.
			return true
		}
		if info.IsDir() {
			if err := fw.AddRecursive(path); err != nil {
				fw.logger.Warn(ctx, err, "Failed to watch new directory", "dir", path)
			}
			return fw.scan(ctx, path)
		}
		return fw.emit(ctx, Event{Type: EventAdd, Path: path})
	case event.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return true
		}
		return fw.emit(ctx, Event{Type: EventChange, Path: path})
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return fw.emit(ctx, Event{Type: EventUnlink, Path: path})
	default:
		return true
	}
}

func (fw *FileWatcher) emit(ctx context.Context, event Event) bool {
	select {
	case fw.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()

	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

// SkipDirFilter rejects every path that has one of names as a component.
func SkipDirFilter(names ...string) FileFilter {
	return func(path string) bool {
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			for _, name := range names {
				if part == name {
					return false
				}
			}
		}
		return true
	}
}

// Common file filters
var (
	NoGitFilter         = SkipDirFilter(".git")
	NoNodeModulesFilter = SkipDirFilter("node_modules")
)
