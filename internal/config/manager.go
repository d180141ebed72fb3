package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Manager holds a live Config snapshot and optionally reloads it when its
// backing file changes, the way the teacher's internal/config.Service
// watches its configuration file with fsnotify and swaps in a fresh
// snapshot on write events.
//
// Only a subset of Config is safe to hot-swap: the gateway constructors
// (repository backend, CI, badge) already closed over their credentials
// and endpoints by the time a reload happens, so changing those fields
// here would silently stop matching the running gateways. Manager swaps
// the whole Config snapshot for readers (Snapshot), but callers that
// already own long-lived collaborators should only consult the fields
// that those collaborators don't cache, such as LogLevel.
type Manager struct {
	configFile string
	log        *zap.Logger

	mu     sync.RWMutex
	cfg    Config
	watcher *fsnotify.Watcher
}

// NewManager loads the initial Config and returns a Manager wrapping it.
// configFile may be empty, in which case watching is a no-op (Watch
// returns nil immediately) since there is nothing to watch.
func NewManager(configFile string, log *zap.Logger) (*Manager, error) {
	cfg, err := Load(configFile)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{configFile: configFile, log: log, cfg: cfg}, nil
}

// SetLogger attaches a logger for watch-loop diagnostics, replacing the
// no-op logger NewManager installs by default. Useful when the real
// logger can only be built from the Config NewManager already loaded.
func (m *Manager) SetLogger(log *zap.Logger) {
	if log == nil {
		return
	}
	m.mu.Lock()
	m.log = log
	m.mu.Unlock()
}

// Snapshot returns the current Config by value.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch starts watching the backing config file for writes and reloads
// the snapshot on change, invoking onReload with the new Config. It
// blocks until ctx is cancelled. A reload that fails to parse or
// validate is logged and the previous snapshot is kept, since the file
// may be mid-write from an editor.
func (m *Manager) Watch(ctx context.Context, onReload func(Config)) error {
	if m.configFile == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(m.configFile); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config file %s: %w", m.configFile, err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			m.reload(onReload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) reload(onReload func(Config)) {
	cfg, err := Load(m.configFile)
	if err != nil {
		m.log.Warn("config reload failed, keeping previous snapshot", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.log.Info("configuration reloaded", zap.String("log_level", cfg.LogLevel))
	if onReload != nil {
		onReload(cfg)
	}
}
