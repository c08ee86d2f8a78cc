package watcher

import (
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"ariaterm/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

var ErrClosed = errors.New("watcher is closed")

type callbackEntry struct {
	id       uint64
	callback func(Event)
}

type watchHandle struct {
	watcher *Watcher
	path    string
	id      uint64
	once    sync.Once
}

func (handle *watchHandle) Close() error {
	if handle == nil || handle.watcher == nil {
		return nil
	}
	var err error
	handle.once.Do(func() {
		err = handle.watcher.removeCallback(handle.path, handle.id)
	})
	return err
}

// New creates a Watcher with default options.
func New() (*Watcher, error) {
	return NewWithOptions(Options{})
}

func NewWithOptions(options Options) (*Watcher, error) {
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}

	instance := &Watcher{
		watcher:   source,
		callbacks: make(map[string][]callbackEntry),
		dirs:      make(map[string]int),
		debouncer: newDebouncer(debounce),
		done:      make(chan struct{}),
		logger:    logger.Component("watcher"),
	}
	go instance.run()
	return instance, nil
}

// Watch calls callback after path settles following a change. The file does
// not have to exist yet, but its directory does.
func (watcher *Watcher) Watch(path string, callback func(Event)) (Handle, error) {
	if watcher == nil {
		return nil, errors.New("watcher is nil")
	}
	if path == "" {
		return nil, errors.New("path is required")
	}
	if callback == nil {
		return nil, errors.New("callback is required")
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(absolute)

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil, ErrClosed
	}
	needsAdd := watcher.dirs[dir] == 0
	watcher.nextID++
	entry := callbackEntry{id: watcher.nextID, callback: callback}
	watcher.callbacks[absolute] = append(watcher.callbacks[absolute], entry)
	watcher.dirs[dir]++
	active := len(watcher.dirs)
	watcher.mutex.Unlock()

	if needsAdd {
		if err := watcher.watcher.Add(dir); err != nil {
			_ = watcher.removeCallback(absolute, entry.id)
			watcher.logger.Warn("watch add failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
			return nil, err
		}
		watcher.logger.Debug("watch added", map[string]string{
			"path":           dir,
			"active_watches": strconv.Itoa(active),
		})
	}
	return &watchHandle{watcher: watcher, path: absolute, id: entry.id}, nil
}

func (watcher *Watcher) removeCallback(path string, id uint64) error {
	dir := filepath.Dir(path)
	removeDir := false

	watcher.mutex.Lock()
	callbacks := watcher.callbacks[path]
	for index, candidate := range callbacks {
		if candidate.id != id {
			continue
		}
		callbacks = append(callbacks[:index:index], callbacks[index+1:]...)
		if len(callbacks) == 0 {
			delete(watcher.callbacks, path)
		} else {
			watcher.callbacks[path] = callbacks
		}
		watcher.dirs[dir]--
		if watcher.dirs[dir] <= 0 {
			delete(watcher.dirs, dir)
			removeDir = !watcher.closed
		}
		break
	}
	watcher.mutex.Unlock()

	if !removeDir {
		return nil
	}
	if err := watcher.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		watcher.logger.Warn("watch remove failed", map[string]string{
			"path":  dir,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// Close stops event processing. Pending debounced events are discarded.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.debouncer.stop()
	watcher.mutex.Unlock()

	close(watcher.done)
	return watcher.watcher.Close()
}

func (watcher *Watcher) run() {
	for {
		select {
		case event, ok := <-watcher.watcher.Events:
			if !ok {
				return
			}
			watcher.handleEvent(event)
		case err, ok := <-watcher.watcher.Errors:
			if !ok {
				return
			}
			atomic.AddUint64(&watcher.errorCount, 1)
			watcher.logger.Warn("watcher error", map[string]string{"error": err.Error()})
		case <-watcher.done:
			return
		}
	}
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.mutex.Lock()
	active := len(watcher.dirs)
	watcher.mutex.Unlock()
	return Metrics{
		ActiveWatches:   active,
		EventsDelivered: atomic.LoadUint64(&watcher.eventsDelivered),
		EventsDropped:   atomic.LoadUint64(&watcher.eventsDropped),
		Errors:          atomic.LoadUint64(&watcher.errorCount),
	}
}
