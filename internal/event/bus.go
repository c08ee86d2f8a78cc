package event

import (
	"context"
	"sync"
	"sync/atomic"

	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"

	"go.opentelemetry.io/otel/metric"
)

const defaultSubscriberBufferSize = 64

type BusOptions struct {
	Name                 string
	SubscriberBufferSize int
	MaxSubscribers       int
	HistorySize          int
	Registry             *metrics.Registry
	Logger               *logging.Logger
	// Meter defaults to the global OpenTelemetry meter provider.
	Meter metric.Meter
}

// Bus fans events out to subscribers without blocking the publisher. A
// subscriber whose buffer is full misses the event.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]subscription[T]
	nextSubID   uint64
	closed      bool
	closeOnce   sync.Once
	options     BusOptions
	registry    *metrics.Registry
	instruments *busInstruments
	dropped     atomic.Int64
	history     []T
	historyNext int
	historyLen  int
}

type subscription[T any] struct {
	ch     chan T
	filter func(T) bool
}

// NewBus creates a bus that closes itself when ctx is done.
func NewBus[T any](ctx context.Context, opts BusOptions) *Bus[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.SubscriberBufferSize <= 0 {
		opts.SubscriberBufferSize = defaultSubscriberBufferSize
	}
	if opts.Name == "" {
		opts.Name = "event_bus"
	}
	bus := &Bus[T]{
		subscribers: make(map[uint64]subscription[T]),
		options:     opts,
		registry:    opts.Registry,
	}
	if opts.HistorySize > 0 {
		bus.history = make([]T, opts.HistorySize)
	}
	if bus.registry == nil {
		bus.registry = metrics.Default
	}
	instruments, err := newBusInstruments(opts.Meter)
	if err != nil {
		opts.Logger.Warn("otel bus instruments unavailable", map[string]string{
			"bus":   opts.Name,
			"error": err.Error(),
		})
	}
	bus.instruments = instruments
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			bus.Close()
		}()
	}
	return bus
}

func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	return b.SubscribeFiltered(nil)
}

// SubscribeFiltered returns a channel receiving events accepted by filter and
// a cancel func that closes it. A closed or full bus returns a closed channel.
func (b *Bus[T]) SubscribeFiltered(filter func(T) bool) (<-chan T, func()) {
	if b == nil {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan T, b.options.SubscriberBufferSize)
	id := atomic.AddUint64(&b.nextSubID, 1)

	b.mu.Lock()
	if b.closed || (b.options.MaxSubscribers > 0 && len(b.subscribers) >= b.options.MaxSubscribers) {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[id] = subscription[T]{ch: ch, filter: filter}
	count := len(b.subscribers)
	b.mu.Unlock()

	b.registry.SetEventSubscribers(b.options.Name, count)
	return ch, func() {
		b.removeSubscriber(id)
	}
}

func (b *Bus[T]) Publish(event T) {
	if b == nil {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.appendHistoryLocked(event)
	subscribers := make([]subscription[T], 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subscribers = append(subscribers, sub)
	}
	// Sends happen under the lock so cancel cannot close a channel mid-send.
	eventType := eventTypeOf(event)
	b.registry.IncEventPublished(b.options.Name, eventType)
	b.instruments.recordPublished(b.options.Name, eventType)
	for _, sub := range subscribers {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.registry.IncEventDropped(b.options.Name, eventType)
			b.instruments.recordDropped(b.options.Name, eventType)
			if b.dropped.Add(1) == 1 {
				b.options.Logger.Warn("event bus subscriber is falling behind", map[string]string{
					"bus": b.options.Name,
				})
			}
		}
	}
	b.mu.Unlock()
}

func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		subscribers := b.subscribers
		b.subscribers = make(map[uint64]subscription[T])
		b.mu.Unlock()

		for _, sub := range subscribers {
			close(sub.ch)
		}
		b.registry.SetEventSubscribers(b.options.Name, 0)
	})
}

// History returns up to count of the most recent events, oldest first. A
// count of zero or less returns everything retained.
func (b *Bus[T]) History(count int) []T {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.historyLen == 0 {
		return nil
	}
	if count <= 0 || count > b.historyLen {
		count = b.historyLen
	}
	size := len(b.history)
	start := (b.historyNext - count + size) % size
	events := make([]T, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, b.history[(start+i)%size])
	}
	return events
}

func (b *Bus[T]) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Dropped returns the number of deliveries skipped because a subscriber was
// full.
func (b *Bus[T]) Dropped() int64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

func (b *Bus[T]) removeSubscriber(id uint64) {
	b.mu.Lock()
	existing, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(existing.ch)
	}
	count := len(b.subscribers)
	b.mu.Unlock()

	if ok {
		b.registry.SetEventSubscribers(b.options.Name, count)
	}
}

func (b *Bus[T]) appendHistoryLocked(event T) {
	if len(b.history) == 0 {
		return
	}
	b.history[b.historyNext] = event
	b.historyNext = (b.historyNext + 1) % len(b.history)
	if b.historyLen < len(b.history) {
		b.historyLen++
	}
}

func eventTypeOf(event any) string {
	typed, ok := event.(Event)
	if !ok || typed.Type() == "" {
		return "unknown"
	}
	return typed.Type()
}
