package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/apimanager/internal/observability"
)

const defaultDebounceDelay = 100 * time.Millisecond

// ReloadFunc receives each configuration that loaded and validated.
type ReloadFunc func(*GatewayConfig)

// Watcher follows a configuration file and hands every valid new
// version to a ReloadFunc. A file that fails to load or validate is
// logged and the previous version stays in effect. Rewrites that leave
// the content unchanged are ignored.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	onReload ReloadFunc
	onError  func(error)
	logger   observability.Logger
	debounce time.Duration

	current atomic.Pointer[GatewayConfig]
	digest  [sha256.Size]byte

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay coalesces bursts of file events.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		if delay > 0 {
			w.debounce = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback is told about every rejected reload.
func WithErrorCallback(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher for path. Nothing is read until Start.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		fs:       fs,
		onReload: onReload,
		debounce: defaultDebounceDelay,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the file once and then follows changes until ctx is done
// or Stop is called. Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return nil
	}

	cfg, digest, err := w.read()
	if err != nil {
		return err
	}

	// The directory is watched since editors replace files by rename.
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.current.Store(cfg)
	w.digest = digest

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	return nil
}

// Stop ends the watch loop and releases the file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return w.fs.Close()
}

// LastConfig returns the configuration currently in effect.
func (w *Watcher) LastConfig() *GatewayConfig {
	return w.current.Load()
}

// ForceReload reads the file now, even when its content is unchanged.
func (w *Watcher) ForceReload() error {
	cfg, digest, err := w.read()
	if err != nil {
		return err
	}
	w.apply(cfg, digest)
	return nil
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path ||
				!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(w.debounce)

		case <-debounce.C:
			w.changed()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.reject("file watcher error", err)
		}
	}
}

func (w *Watcher) changed() {
	cfg, digest, err := w.read()
	if err != nil {
		w.reject("configuration reload rejected", err)
		return
	}

	w.mu.Lock()
	same := digest == w.digest
	w.mu.Unlock()
	if same {
		w.logger.Debug("configuration unchanged", observability.String("path", w.path))
		return
	}

	w.apply(cfg, digest)
}

func (w *Watcher) apply(cfg *GatewayConfig, digest [sha256.Size]byte) {
	w.mu.Lock()
	w.digest = digest
	w.mu.Unlock()
	w.current.Store(cfg)

	w.logger.Info("configuration reloaded",
		observability.String("service", cfg.Spec.Service.Name),
		observability.Int("methods", len(cfg.Spec.Service.Methods)),
	)

	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func (w *Watcher) reject(msg string, err error) {
	w.logger.Error(msg, observability.String("path", w.path), observability.Error(err))
	if w.onError != nil {
		w.onError(err)
	}
}

// read loads and validates the file and returns the digest of its raw
// bytes.
func (w *Watcher) read() (*GatewayConfig, [sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, fmt.Errorf("failed to read config file %s: %w", w.path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}
