package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func waitForChange(t *testing.T, w *Watcher) bool {
	t.Helper()
	select {
	case <-w.Changes():
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestWatcherSignalsOnWatchedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "status.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "status.json"), []byte(`{}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !waitForChange(t, w) {
		t.Fatal("expected a change signal")
	}
}

func TestWatcherSignalsOnRenameReplace(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "status.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	tmp := filepath.Join(dir, "status.json.123.tmp")
	if err := os.WriteFile(tmp, []byte(`{}`), 0644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "status.json")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if !waitForChange(t, w) {
		t.Fatal("expected a change signal after rename")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "status.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-w.Changes():
		t.Fatal("unexpected change signal for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherRelevantFiltersChmod(t *testing.T) {
	w := &Watcher{names: map[string]struct{}{"app.log": {}}}

	if w.relevant(fsnotify.Event{Name: "/data/app.log", Op: fsnotify.Chmod}) {
		t.Error("chmod events should be ignored")
	}
	if !w.relevant(fsnotify.Event{Name: "/data/app.log", Op: fsnotify.Write}) {
		t.Error("write events on watched files should count")
	}
	if w.relevant(fsnotify.Event{Name: "/data/other.log", Op: fsnotify.Write}) {
		t.Error("unwatched files should be ignored")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWatcherCloseEndsChannels(t *testing.T) {
	w, err := New(t.TempDir(), "status.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	drained := make(chan struct{})
	go func() {
		for range w.Errors() {
		}
		for range w.Changes() {
		}
		close(drained)
	}()

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("channels still open after Close")
	}
}
