package event

import (
	"sync"
	"testing"
	"time"
)

// MockBus records published events and delivers them synchronously.
type MockBus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]chan T
	nextID      uint64
	events      []T
}

func NewMockBus[T any]() *MockBus[T] {
	return &MockBus[T]{subscribers: make(map[uint64]chan T)}
}

func (bus *MockBus[T]) Publish(event T) {
	if bus == nil {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.events = append(bus.events, event)
	for _, ch := range bus.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (bus *MockBus[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 16)
	bus.mu.Lock()
	bus.nextID++
	id := bus.nextID
	bus.subscribers[id] = ch
	bus.mu.Unlock()

	return ch, func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		if existing, ok := bus.subscribers[id]; ok {
			delete(bus.subscribers, id)
			close(existing)
		}
	}
}

func (bus *MockBus[T]) Events() []T {
	if bus == nil {
		return nil
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return append([]T(nil), bus.events...)
}

// ReceiveWithTimeout waits for a single event or fails the test.
func ReceiveWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event after %s", timeout)
	}
	var zero T
	return zero
}
