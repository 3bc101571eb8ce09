package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a config file when it changes on disk.
//
// The directory is watched rather than the file so editors that replace the
// file on save are still seen. Rapid writes are debounced.
type Watcher struct {
	path     string
	log      *zap.Logger
	debounce time.Duration

	fsw     *fsnotify.Watcher
	updates chan Config

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher creates a watcher for path. Call Start to begin delivering updates.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		log:      log,
		debounce: 200 * time.Millisecond,
		fsw:      fsw,
		updates:  make(chan Config, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Updates delivers each successfully reloaded config. Only the newest pending
// config is kept; the frame loop drains it without blocking.
func (w *Watcher) Updates() <-chan Config { return w.updates }

// Start watches in a goroutine until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	<-w.done
	_ = w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", zap.Error(err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	w.log.Info("config reloaded", zap.String("path", w.path))
}
