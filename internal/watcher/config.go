package watcher

import (
	"errors"
	"strconv"
	"sync"

	"ariaterm/internal/config"
	"ariaterm/internal/logging"
)

// AccessibilityTarget is the part of the reader a config reload can change.
type AccessibilityTarget interface {
	SetAccessibilityEnabled(enabled bool)
}

// ConfigReloader re-reads the config file after it changes and applies
// reader.enabled. A file that fails to load leaves the current state alone.
type ConfigReloader struct {
	load   func() (config.Settings, error)
	target AccessibilityTarget
	logger *logging.Logger

	mutex   sync.Mutex
	current config.Settings
	handle  Handle
}

// WatchConfig registers path with watcher. initial is the settings the
// process started with; only keys that differ from it are applied, so a
// toggle made at runtime survives an unrelated edit.
func WatchConfig(watcher *Watcher, path string, initial config.Settings, load func() (config.Settings, error), target AccessibilityTarget, logger *logging.Logger) (*ConfigReloader, error) {
	if load == nil || target == nil {
		return nil, errors.New("config reloader requires a loader and a target")
	}
	reloader := &ConfigReloader{
		load:    load,
		target:  target,
		logger:  logger.Component("config"),
		current: initial,
	}
	handle, err := watcher.Watch(path, func(Event) {
		_ = reloader.Reload()
	})
	if err != nil {
		return nil, err
	}
	reloader.handle = handle
	return reloader, nil
}

// Reload loads the file now and applies what changed.
func (reloader *ConfigReloader) Reload() error {
	next, err := reloader.load()
	if err != nil {
		reloader.logger.Warn("config reload failed", map[string]string{"error": err.Error()})
		return err
	}

	reloader.mutex.Lock()
	previous := reloader.current
	reloader.current = next
	reloader.mutex.Unlock()

	if next.Reader.Enabled != previous.Reader.Enabled {
		reloader.target.SetAccessibilityEnabled(next.Reader.Enabled)
		reloader.logger.Info("accessibility toggled by config", map[string]string{
			"enabled": strconv.FormatBool(next.Reader.Enabled),
		})
	}
	if next.Reader.Interval != previous.Reader.Interval {
		reloader.logger.Warn("reader.interval changes apply after restart", map[string]string{
			"interval": next.Reader.Interval.String(),
		})
	}
	return nil
}

func (reloader *ConfigReloader) Settings() config.Settings {
	reloader.mutex.Lock()
	defer reloader.mutex.Unlock()
	return reloader.current
}

func (reloader *ConfigReloader) Close() error {
	if reloader == nil || reloader.handle == nil {
		return nil
	}
	return reloader.handle.Close()
}
