package profiles

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

const reloadDebounce = 200 * time.Millisecond

// ChangeListener is notified with the new catalog after a successful reload.
type ChangeListener func(catalog *Catalog)

// Registry owns the current catalog: the embedded defaults merged with the
// user overlay file.
type Registry struct {
	overlayPath string
	defaults    *Catalog
	logger      *logger.Logger

	mu        sync.RWMutex
	catalog   *Catalog
	listeners []ChangeListener
}

// NewRegistry loads the defaults and, when overlayPath is set, the overlay.
func NewRegistry(overlayPath string, log *logger.Logger) (*Registry, error) {
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}
	r := &Registry{
		overlayPath: overlayPath,
		defaults:    defaults,
		catalog:     defaults,
		logger:      log.WithFields(zap.String("component", "profile-registry")),
	}
	if overlayPath != "" {
		catalog, err := r.load()
		if err != nil {
			return nil, err
		}
		r.catalog = catalog
	}
	return r, nil
}

func (r *Registry) load() (*Catalog, error) {
	overlay, err := LoadOverlayFile(r.overlayPath)
	if err != nil {
		return nil, err
	}
	return Apply(r.defaults, overlay), nil
}

// Catalog returns the current catalog.
func (r *Registry) Catalog() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Preset looks up the preset for (id, variant) in the current catalog.
func (r *Registry) Preset(id executor.ExecutorID, variant optional.Field[string]) *executor.Config {
	return r.Catalog().Preset(id, variant)
}

// OnChange registers a listener for reloads.
func (r *Registry) OnChange(fn ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-reads the overlay. On error the previous catalog stays active.
func (r *Registry) Reload() error {
	if r.overlayPath == "" {
		return nil
	}
	catalog, err := r.load()
	if err != nil {
		r.logger.Warn("keeping previous profile catalog", zap.String("path", r.overlayPath), zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.catalog = catalog
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.Unlock()

	r.logger.Info("profile catalog reloaded",
		zap.String("path", r.overlayPath),
		zap.Int("executors", catalog.Len()))
	for _, fn := range listeners {
		fn(catalog)
	}
	return nil
}

// Watch reloads the catalog whenever the overlay file changes, until ctx is
// done. The parent directory is watched so editors that replace the file are
// picked up.
func (r *Registry) Watch(ctx context.Context) error {
	if r.overlayPath == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create overlay watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(r.overlayPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	r.logger.Info("watching profile overlay", zap.String("path", target))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)
		case <-debounce:
			debounce = nil
			_ = r.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("overlay watcher error", zap.Error(err))
		}
	}
}
