package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager serves the current registry and reloads it when its file changes.
type Manager struct {
	registry Registry
	lock     sync.RWMutex
	path     string
	apiKey   string

	log *slog.Logger
}

type managerOptions struct {
	logger *slog.Logger
	apiKey string
}

// ManagerOptions represents an optional function to override Manager default values.
type ManagerOptions func(*managerOptions)

// WithLogger sets the logger of the Manager.
func WithLogger(l *slog.Logger) ManagerOptions {
	return func(o *managerOptions) {
		o.logger = l
	}
}

// WithAPIKey sets the API key given to parks which have none after loading.
func WithAPIKey(key string) ManagerOptions {
	return func(o *managerOptions) {
		o.apiKey = key
	}
}

// NewManager returns a Manager for the registry file at path.
// An empty path serves the built-in parks only.
func NewManager(path string, args ...ManagerOptions) *Manager {
	opts := managerOptions{
		logger: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		registry: Defaults().WithAPIKey(opts.apiKey),
		path:     path,
		apiKey:   opts.apiKey,
		log:      opts.logger,
	}
}

// Load reads the registry file and replaces the served registry.
// On error, the previous registry is kept.
func (m *Manager) Load() error {
	r := Defaults()
	if m.path != "" {
		var err error
		if r, err = Load(m.path); err != nil {
			return err
		}
	}
	r = r.WithAPIKey(m.apiKey)

	m.lock.Lock()
	m.registry = r
	m.lock.Unlock()

	m.log.Info("Park registry loaded", "file", m.path, "parks", r.IDs())
	return nil
}

// Registry returns the registry currently served.
func (m *Manager) Registry() Registry {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.registry
}

// Park returns the park registered under id in the current registry.
func (m *Manager) Park(id string) (Park, error) {
	return m.Registry().Park(id)
}

// Watch loads the registry file, then reloads it on every change until ctx is done.
//
// It returns two channels: one for changes which result in a successful load and another for unrecoverable watcher errors.
func (m *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errs <-chan error, err error) {
	if m.path == "" {
		return nil, nil, errors.New("no registry file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", dir, err)
	}

	m.log.Info("Watching park registry directory", "dir", dir)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	if err := m.Load(); err != nil {
		m.log.Warn("Error loading initial park registry", "err", err)
	}

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				m.log.Info("Park registry watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- errors.New("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(m.path) {
					continue
				}

				m.log.Debug("Park registry changed. Reloading...")
				if err := m.Load(); err != nil {
					m.log.Warn("Error reloading park registry", "err", err)
					continue
				}

				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- errors.New("watcher errors channel closed unexpectedly")
					return
				}
				m.log.Warn("Watcher error", "err", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}
