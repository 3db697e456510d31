// Package watch turns filesystem events on the shared files into refresh
// signals for the UI.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a fixed set of files in one directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	names   map[string]struct{}
	changes chan struct{}
	errs    chan error
	done    chan struct{}

	closeOnce sync.Once
}

// New watches dir for changes to the named files. Watching the directory
// rather than the files keeps working across atomic rename replaces.
func New(dir string, names ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher: fsWatcher,
		names:   make(map[string]struct{}, len(names)),
		changes: make(chan struct{}, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	for _, name := range names {
		w.names[name] = struct{}{}
	}

	go w.processEvents()
	return w, nil
}

// Changes delivers a signal after one or more relevant events. Bursts are
// coalesced into a single pending signal. The channel is closed after Close.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors delivers watcher errors. While one is pending, newer ones are
// dropped. The channel is closed after Close.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.errs)
	defer close(w.changes)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	_, ok := w.names[filepath.Base(event.Name)]
	return ok
}
