package catalog

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/metrics"
)

// Watcher reloads a catalog file when it changes on disk and hands each
// successfully parsed catalog to a callback. A file that fails to parse is
// logged and skipped, so the caller keeps its previous catalog.
type Watcher struct {
	path     string
	callback func(*Catalog)
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the catalog file at path.
func NewWatcher(path string, callback func(*Catalog)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. The containing directory is watched rather than the
// file itself so editors that replace the file by rename are still seen.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	go w.loop()
	logging.Info().Str("path", w.path).Msg("catalog: watching for changes")
	return nil
}

// Stop shuts down the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.watcher == nil {
			close(w.done)
			return
		}
		_ = w.watcher.Close()
		<-w.done
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("catalog: watcher error")
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("path", w.path).Msg("catalog: reload failed, keeping previous catalog")
		return
	}
	metrics.CatalogReloads.WithLabelValues("ok").Inc()
	logging.Info().
		Str("path", w.path).
		Int("dimensions", len(c.Dimensions)).
		Int("activities", len(c.Activities)).
		Msg("catalog: reloaded")
	if w.callback != nil {
		w.callback(c)
	}
}
