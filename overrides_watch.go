package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const overrideReloadDebounce = 200 * time.Millisecond

// overrideWatcher keeps the manifest override set loaded from disk and
// refreshes it when the file changes. Readers always see a complete set, or
// nil when no overrides are configured.
type overrideWatcher struct {
	path    string
	current atomic.Pointer[ToolOverrideSet]
	log     *logrus.Entry
}

func newOverrideWatcher(path string) (*overrideWatcher, error) {
	normalized, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &overrideWatcher{
		path: normalized,
		log:  logComponent("overrides"),
	}
	set, err := loadToolOverridesFromPath(normalized)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		w.log.Warnf("override file %s missing, waiting for it to appear", normalized)
	}
	w.current.Store(set)
	return w, nil
}

func (w *overrideWatcher) Current() *ToolOverrideSet {
	if w == nil {
		return nil
	}
	return w.current.Load()
}

// Watch blocks until ctx is done, reloading the override file after edits.
// The parent directory is watched rather than the file itself so an atomic
// rename into place is still observed.
func (w *overrideWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(overrideReloadDebounce, w.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("watch error: %v", err)
		}
	}
}

func (w *overrideWatcher) reload() {
	set, err := loadToolOverridesFromPath(w.path)
	if err != nil {
		w.log.Warnf("reload failed, keeping previous overrides: %v", err)
		return
	}
	w.current.Store(set)
	w.log.Infof("overrides reloaded from %s", w.path)
}
