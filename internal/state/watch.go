package state

import (
	"os"

	"github.com/fsnotify/fsnotify"
)

// RunWatcher notifies callers when files under a run's state directory
// change, so an attach mode (e.g. a TUI) can refresh without polling. Watch
// construction and teardown is the only part of this concern in scope; the
// consumer loop itself belongs to whatever attach surface wires it.
type RunWatcher struct {
	watcher *fsnotify.Watcher
	Events  chan fsnotify.Event
	Errors  chan error
}

// NewRunWatcher starts watching the run's state directory. Watch failures
// (e.g. an unsupported filesystem) are non-fatal: the returned watcher is
// simply never notified.
func NewRunWatcher(layout Layout, runID string) (*RunWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := layout.RunStateDir(runID)
	if _, statErr := os.Stat(dir); statErr == nil {
		_ = fsw.Add(dir)
	}

	return &RunWatcher{
		watcher: fsw,
		Events:  fsw.Events,
		Errors:  fsw.Errors,
	}, nil
}

// Close stops the underlying fsnotify watcher.
func (w *RunWatcher) Close() error {
	return w.watcher.Close()
}
