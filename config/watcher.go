package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent describes a batch file whose content changed.
type ChangeEvent struct {
	Source  string
	OldHash string
	NewHash string
	Batch   *Batch
	Time    time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchDebounce sets how long events must settle before a reload.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher re-parses a batch file when it changes and hands the result to a
// callback. The parent directory is watched so editors that save by
// renaming over the file are noticed.
type Watcher struct {
	source   *FileSource
	debounce time.Duration
	logger   *slog.Logger
	onChange func(ChangeEvent)

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
	hash   string
}

// NewWatcher creates a Watcher for source. onChange runs on the watcher's
// goroutine, one call at a time.
func NewWatcher(source *FileSource, onChange func(ChangeEvent), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   source,
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start records the current content hash and begins watching until ctx is
// done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	hash, err := w.source.Hash(ctx)
	if err != nil {
		return fmt.Errorf("batch watcher: initial hash: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("batch watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.source.Path())); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("batch watcher: watch %s: %w", w.source.Path(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.hash, w.fsw, w.cancel = hash, fsw, cancel
	w.done = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the goroutine to exit. Calling it twice,
// or without a successful Start, is harmless.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	// Stopped until the first relevant event arrives.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	target := filepath.Clean(w.source.Path())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == target && ev.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("batch watcher", "path", target, "err", err)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

// reload fires onChange when the file's hash moved and it still parses. A
// broken save leaves the old hash in place so the next good save triggers.
func (w *Watcher) reload(ctx context.Context) {
	path := w.source.Path()
	hash, err := w.source.Hash(ctx)
	switch {
	case err != nil:
		w.logger.Warn("batch watcher: read failed", "path", path, "err", err)
		return
	case hash == w.hash:
		return
	}
	b, err := w.source.Load(ctx)
	if err != nil {
		w.logger.Warn("batch watcher: ignoring invalid batch", "path", path, "err", err)
		return
	}

	prev := w.hash
	w.hash = hash
	w.logger.Info("batch reloaded", "path", path, "batch", b.Name, "invocations", len(b.Invocations))
	w.onChange(ChangeEvent{Source: w.source.Name(), OldHash: prev, NewHash: hash, Batch: b, Time: time.Now()})
}
