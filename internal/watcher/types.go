package watcher

import (
	"sync"
	"time"

	"ariaterm/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Event represents a settled change to a watched file.
type Event struct {
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Handle releases a registration.
type Handle interface {
	Close() error
}

// Options configures a Watcher. A nil Logger discards output.
type Options struct {
	Logger   *logging.Logger
	Debounce time.Duration
}

type Metrics struct {
	ActiveWatches   int
	EventsDelivered uint64
	EventsDropped   uint64
	Errors          uint64
}

// Watcher is the fsnotify-backed implementation.
type Watcher struct {
	watcher   *fsnotify.Watcher
	mutex     sync.Mutex
	callbacks map[string][]callbackEntry
	// dirs counts watched files per parent directory.
	dirs      map[string]int
	debouncer *debouncer
	done      chan struct{}
	closed    bool
	logger    *logging.Logger
	nextID    uint64

	eventsDelivered uint64
	eventsDropped   uint64
	errorCount      uint64
}
