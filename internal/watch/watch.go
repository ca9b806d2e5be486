// Package watch recompiles source files when they change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// DefaultDebounce is how long a change has to settle before a rebuild.
const DefaultDebounce = 50 * time.Millisecond

// Op indicates a change operation on a watched file.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes a change to a watched file.
type Event struct {
	Path string
	Op   Op
}

// Watcher reports changes to a fixed set of files. Parent directories are
// watched rather than the files, so editors that save by renaming a
// temporary file over the original keep being observed.
type Watcher struct {
	Debounce time.Duration

	w     *fsnotify.Watcher
	files map[string]bool
	evC   chan Event
	erC   chan error
	done  chan struct{}
	once  sync.Once

	sf singleflight.Group
	mu sync.Mutex // serializes rebuilds
}

// New watches files for changes.
func New(files ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &Watcher{
		Debounce: DefaultDebounce,
		w:        w,
		files:    make(map[string]bool, len(files)),
		evC:      make(chan Event, 128),
		erC:      make(chan error, 1),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	go fw.loop()
	return fw, nil
}

func (fw *Watcher) loop() {
	defer close(fw.evC)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			path := filepath.Clean(ev.Name)
			if !fw.files[path] {
				continue
			}
			var op Op
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}
			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}
			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}
			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}
			if ev.Op&fsnotify.Chmod != 0 {
				op |= OpChmod
			}
			select {
			case fw.evC <- Event{Path: path, Op: op}:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default:
			}
		}
	}
}

// Close stops the watcher. Events nobody has received yet are dropped.
func (fw *Watcher) Close() error {
	fw.once.Do(func() { close(fw.done) })
	return fw.w.Close()
}

// Run calls rebuild with the absolute path of every file whose content
// changed, until ctx is cancelled or the watcher fails. Events for one file
// that arrive within Debounce of each other share a single rebuild.
func (fw *Watcher) Run(ctx context.Context, rebuild func(path string)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.evC:
			if !ok {
				return nil
			}
			if ev.Op&(OpCreate|OpWrite) == 0 {
				continue
			}
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				fw.sf.Do(path, func() (any, error) {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(fw.Debounce):
					}
					// later events start a new rebuild
					fw.sf.Forget(path)

					fw.mu.Lock()
					defer fw.mu.Unlock()
					rebuild(path)
					return nil, nil
				})
			}(ev.Path)
		case err := <-fw.erC:
			return fmt.Errorf("watch failed: %w", err)
		}
	}
}
