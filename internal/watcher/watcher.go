// Package watcher reports settled batches of file-system changes.
//
// A FileWatcher watches directory trees with fsnotify and feeds every event
// that passes its filters into a Debouncer. The debouncer restarts its quiet
// window on each event and, once the window elapses, emits the pending
// events as one batch deduplicated by path. Directories created under a
// watched tree are added to the watch set as they appear.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/lectern/internal/errors"
	"github.com/conneroisu/lectern/internal/logging"
)

// FileWatcher watches for file changes with debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	errs      chan error
	logger    logging.Logger
	mutex     sync.RWMutex
	stopOnce  sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a changed path is of interest.
type FileFilter func(path string) bool

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}
}

// Output returns the channel settled batches are delivered on.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// NewFileWatcher creates a new file watcher. A nil logger discards output.
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewWatchError(errors.ErrCodeWatchSetup, "create file watcher", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(debounceDelay),
		filters:   make([]FileFilter, 0),
		errs:      make(chan error, 1),
		logger:    logger.WithComponent("watch"),
	}

	return fw, nil
}

// AddFilter adds a file filter. An event is kept only if every filter
// accepts its path.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddPath adds a single directory or file to watch.
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := fw.watcher.Add(cleanPath); err != nil {
		return errors.NewWatchError(errors.ErrCodeWatchSetup, "watch path", err).WithPath(cleanPath)
	}
	return nil
}

// AddRecursive adds a directory and all subdirectories to watch. Directories
// rejected by the filters (such as .git) are not descended into.
func (fw *FileWatcher) AddRecursive(root string) error {
	cleanRoot, err := cleanPath(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.NewWatchError(errors.ErrCodeWatchSetup, "walk watched directory", err).WithPath(path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != cleanRoot && !fw.accept(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return errors.NewWatchError(errors.ErrCodeWatchSetup, "watch directory", err).WithPath(path)
		}
		return nil
	})
}

func cleanPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewWatchError(errors.ErrCodeWatchSetup, "resolve watch path", err).WithPath(path)
	}
	return abs, nil
}

// Batches returns the channel settled, path-deduplicated event batches are
// delivered on.
func (fw *FileWatcher) Batches() <-chan []ChangeEvent {
	return fw.debouncer.output
}

// Errors returns the channel fatal watcher errors are delivered on. After an
// error is delivered no further batches arrive.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errs
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
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
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if err == fsnotify.ErrEventOverflow {
				// Events were lost; a rebuild is still needed.
				fw.logger.Warn(ctx, err, "File watcher queue overflowed")
				fw.debouncer.add(ChangeEvent{Type: EventTypeModified, Path: ""})
				continue
			}
			fw.fail(errors.NewWatchError(errors.ErrCodeWatchFailed, "file watcher failed", err))
			return
		}
	}
}

func (fw *FileWatcher) fail(err error) {
	select {
	case fw.errs <- err:
	default:
	}
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if !fw.accept(event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	var modTime time.Time
	var size int64

	if err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		// Chmod only.
		return
	}

	if eventType == EventTypeCreated && err == nil && info.IsDir() {
		if err := fw.AddRecursive(event.Name); err != nil {
			fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
		}
	}

	fw.logger.Debug(ctx, "File changed", "path", event.Name, "type", eventType.String())

	select {
	case fw.debouncer.events <- ChangeEvent{
		Type:    eventType,
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	}:
	default:
		// Channel full: a batch is already pending.
	}
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.add(event)
		}
	}
}

func (d *Debouncer) add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.flush()
	})
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = d.pending[:0]
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate events by path, keeping the latest
	eventMap := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		eventMap[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(eventMap))
	for _, event := range eventMap {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
		// Consumer is behind; it will rebuild from the batch already queued.
	}

	d.pending = d.pending[:0]
}

// NoEditorTempFilter rejects editor swap, backup and temporary files.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, ".#"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return false
	}
	return true
}

// NoGitFilter rejects paths inside a .git directory.
func NoGitFilter(path string) bool {
	slashed := filepath.ToSlash(path)
	return slashed != ".git" &&
		!strings.HasPrefix(slashed, ".git/") &&
		!strings.Contains(slashed, "/.git/") &&
		!strings.HasSuffix(slashed, "/.git")
}

// DefaultFilters are the filters applied to the template and data trees.
func DefaultFilters() []FileFilter {
	return []FileFilter{NoEditorTempFilter, NoGitFilter}
}

// New creates a watcher over roots with the default filters. Roots that do
// not exist are skipped with a warning.
func New(ctx context.Context, delay time.Duration, logger logging.Logger, roots ...string) (*FileWatcher, error) {
	fw, err := NewFileWatcher(delay, logger)
	if err != nil {
		return nil, err
	}
	for _, f := range DefaultFilters() {
		fw.AddFilter(f)
	}

	watched := 0
	for _, root := range roots {
		if _, statErr := os.Stat(root); os.IsNotExist(statErr) {
			fw.logger.Warn(ctx, statErr, "Watch root does not exist", "path", root)
			continue
		}
		if err := fw.AddRecursive(root); err != nil {
			_ = fw.Stop()
			return nil, err
		}
		watched++
	}
	if watched == 0 {
		_ = fw.Stop()
		return nil, errors.NewWatchError(errors.ErrCodeWatchSetup,
			fmt.Sprintf("none of the watch roots exist: %s", strings.Join(roots, ", ")), nil)
	}

	return fw, nil
}
