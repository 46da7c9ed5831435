package gameini

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// selfWriteWindow hides the events produced by our own Write calls.
const selfWriteWindow = 2 * time.Second

// Watcher reports edits to profile INI files made outside the manager.
type Watcher struct {
	source   *Source
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange func(profileID string)

	mu   sync.Mutex
	dirs map[string]string // config dir -> profile id
}

func NewWatcher(source *Source, logger *zap.Logger, onChange func(profileID string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		source:   source,
		watcher:  fw,
		logger:   logger,
		onChange: onChange,
		dirs:     make(map[string]string),
	}, nil
}

// Watch starts following the config dir of installPath. A missing dir is
// not an error; nothing can drift until it exists.
func (w *Watcher) Watch(profileID, installPath string) {
	dir := filepath.Clean(ConfigDir(installPath))

	w.mu.Lock()
	defer w.mu.Unlock()
	for d, id := range w.dirs {
		if id == profileID && d != dir {
			_ = w.watcher.Remove(d)
			delete(w.dirs, d)
		}
	}
	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Debug("config dir not watchable", zap.String("profile", profileID), zap.String("dir", dir), zap.Error(err))
		return
	}
	w.dirs[dir] = profileID
}

func (w *Watcher) Unwatch(profileID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for d, id := range w.dirs {
		if id == profileID {
			_ = w.watcher.Remove(d)
			delete(w.dirs, d)
		}
	}
}

// Run blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".ini") {
		return
	}
	dir := filepath.Dir(event.Name)

	w.mu.Lock()
	profileID, ok := w.dirs[dir]
	w.mu.Unlock()
	if !ok || w.source.wroteRecently(dir, selfWriteWindow) {
		return
	}

	w.logger.Info("external configuration change detected", zap.String("profile", profileID), zap.String("file", event.Name))
	if w.onChange != nil {
		w.onChange(profileID)
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
