// Package watcher watches the documentation output directory and reports
// debounced batches of changes.
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

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/docview/internal/logging"
)

// Op is the kind of a file change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one changed path. Within a batch each path appears once, with
// its latest operation.
type Change struct {
	Op      Op
	Path    string
	ModTime time.Time
	Size    int64
}

// FileFilter reports whether a path is of interest
type FileFilter func(path string) bool

// Handler receives a debounced batch
type Handler func(changes []Change) error

// FileWatcher reports changes below the watched directories. All events
// are processed on one goroutine; handlers run there too.
type FileWatcher struct {
	fsw      *fsnotify.Watcher
	delay    time.Duration
	filters  []FileFilter
	handlers []Handler
	logger   logging.Logger

	mutex    sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
}

// NewFileWatcher creates a watcher delivering batches once delay has passed
// without further changes.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &FileWatcher{
		fsw:    fsw,
		delay:  delay,
		logger: logger.WithComponent("watcher"),
		done:   make(chan struct{}),
	}, nil
}

// AddFilter adds a filter; a path must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler registers a batch handler
func (fw *FileWatcher) AddHandler(handler Handler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single existing file or directory.
func (fw *FileWatcher) AddPath(path string) error {
	abs, err := existingPath(path)
	if err != nil {
		return err
	}
	return fw.fsw.Add(abs)
}

// AddRecursive watches root and every directory below it, skipping hidden
// directories.
func (fw *FileWatcher) AddRecursive(root string) error {
	abs, err := existingPath(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case path != abs && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		return fw.fsw.Add(path)
	})
}

func existingPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return abs, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.loop(ctx)
	return nil
}

// Stop closes the underlying watcher. Pending changes are dropped.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		err = fw.fsw.Close()
	})
	return err
}

func (fw *FileWatcher) loop(ctx context.Context) {
	var (
		pending = newBatch()
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if !fw.accept(event.Name) {
				continue
			}
			pending.add(toChange(event))
			if timer == nil {
				timer = time.NewTimer(fw.delay)
			} else {
				timer.Reset(fw.delay)
			}
			fire = timer.C
		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		case <-fire:
			fire = nil
			fw.dispatch(ctx, pending.drain())
		}
	}
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.Lock()
	filters := fw.filters
	fw.mutex.Unlock()

	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) dispatch(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	fw.mutex.Lock()
	handlers := fw.handlers
	fw.mutex.Unlock()

	for _, handler := range handlers {
		if err := handler(changes); err != nil {
			fw.logger.Error(ctx, err, "Change handler failed", "changes", len(changes))
		}
	}
}

func toChange(event fsnotify.Event) Change {
	c := Change{Path: event.Name, Op: OpWrite}
	switch {
	case event.Has(fsnotify.Create):
		c.Op = OpCreate
	case event.Has(fsnotify.Remove):
		c.Op = OpRemove
	case event.Has(fsnotify.Rename):
		c.Op = OpRename
	}
	if info, err := os.Stat(event.Name); err == nil {
		c.ModTime = info.ModTime()
		c.Size = info.Size()
	}
	return c
}

// batch collects changes between flushes, keeping the latest per path.
type batch struct {
	changes map[string]Change
}

func newBatch() *batch {
	return &batch{changes: make(map[string]Change)}
}

func (b *batch) add(c Change) {
	b.changes[c.Path] = c
}

// drain returns the collected changes sorted by path and empties the batch.
func (b *batch) drain() []Change {
	out := make([]Change, 0, len(b.changes))
	for _, c := range b.changes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	b.changes = make(map[string]Change)
	return out
}

// GlobFilter keeps paths below root that match a doublestar pattern such as
// "**/data.{json,js}".
func GlobFilter(root, pattern string) (FileFilter, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return func(path string) bool {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		return err == nil && ok
	}, nil
}

// NoTempFilter drops editor swap and backup files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") &&
		!strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp") &&
		!strings.HasSuffix(base, ".tmp")
}
