package event

import (
	"context"
	"testing"
	"time"

	"ariaterm/internal/metrics"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := NewBus[RegionEvent](context.Background(), BusOptions{Registry: &metrics.Registry{}})
	t.Cleanup(bus.Close)

	ch, cancel := bus.Subscribe()
	bus.Publish(NewRegionEvent("polite", "aria-label", "ls"))

	got := ReceiveWithTimeout(t, ch, 100*time.Millisecond)
	if got.Region != "polite" || got.Value != "ls" {
		t.Fatalf("unexpected event %+v", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
	cancel()
}

func TestBusFilteredSubscription(t *testing.T) {
	bus := NewBus[RegionEvent](context.Background(), BusOptions{Registry: &metrics.Registry{}})
	t.Cleanup(bus.Close)

	assertive, cancel := bus.SubscribeFiltered(func(event RegionEvent) bool {
		return event.Region == "assertive"
	})
	defer cancel()

	bus.Publish(NewRegionEvent("polite", "aria-label", "skip"))
	bus.Publish(NewRegionEvent("assertive", "aria-label", "keep"))

	got := ReceiveWithTimeout(t, assertive, 100*time.Millisecond)
	if got.Value != "keep" {
		t.Fatalf("expected filtered event, got %+v", got)
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	registry := &metrics.Registry{}
	bus := NewBus[RegionEvent](context.Background(), BusOptions{
		Name:                 "regions",
		SubscriberBufferSize: 1,
		Registry:             registry,
	})
	t.Cleanup(bus.Close)

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(NewRegionEvent("polite", "aria-label", "first"))
	bus.Publish(NewRegionEvent("polite", "aria-label", "second"))

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}
	if got := ReceiveWithTimeout(t, ch, 100*time.Millisecond); got.Value != "first" {
		t.Fatalf("expected first event to be kept, got %q", got.Value)
	}
}

func TestBusHistory(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{HistorySize: 3, Registry: &metrics.Registry{}})
	t.Cleanup(bus.Close)

	if bus.History(0) != nil {
		t.Fatalf("expected empty history")
	}
	bus.Publish(1)
	bus.Publish(2)
	if got := bus.History(0); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected partial history %v", got)
	}
	bus.Publish(3)
	bus.Publish(4)
	if got := bus.History(0); len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected history %v", got)
	}
	if got := bus.History(2); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected last two %v", got)
	}
}

func TestBusClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus[int](ctx, BusOptions{Registry: &metrics.Registry{}})
	ch, _ := bus.Subscribe()

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bus close")
	}

	late, _ := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("expected subscribe after close to return a closed channel")
	}
	bus.Publish(1)
}

func TestBusMaxSubscribers(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{MaxSubscribers: 1, Registry: &metrics.Registry{}})
	t.Cleanup(bus.Close)

	_, cancel := bus.Subscribe()
	defer cancel()
	extra, _ := bus.Subscribe()
	if _, ok := <-extra; ok {
		t.Fatal("expected rejected subscriber channel to be closed")
	}
	if bus.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
}
