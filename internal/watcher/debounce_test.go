package watcher

import (
	"testing"
	"time"
)

func TestDebouncerCoalescesEvents(t *testing.T) {
	debouncer := newDebouncer(25 * time.Millisecond)
	defer debouncer.stop()

	received := make(chan string, 2)
	flush := func(path string) {
		received <- path
	}

	dropped := debouncer.schedule("path", Event{Path: "path"}, flush)
	if dropped {
		t.Fatalf("expected first event not to be dropped")
	}
	dropped = debouncer.schedule("path", Event{Path: "path"}, flush)
	if !dropped {
		t.Fatalf("expected second event to be coalesced")
	}

	count := 0
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case <-received:
			count++
		case <-deadline:
			if count != 1 {
				t.Fatalf("expected 1 flush, got %d", count)
			}
			return
		}
	}
}

func TestDebouncerPopKeepsLatestEvent(t *testing.T) {
	debouncer := newDebouncer(time.Hour)
	defer debouncer.stop()

	noop := func(string) {}
	debouncer.schedule("a", Event{Path: "a", Timestamp: time.Unix(1, 0)}, noop)
	debouncer.schedule("a", Event{Path: "a", Timestamp: time.Unix(2, 0)}, noop)

	event, ok := debouncer.pop("a")
	if !ok || !event.Timestamp.Equal(time.Unix(2, 0)) {
		t.Fatalf("expected latest event, got %+v ok=%v", event, ok)
	}
	if _, ok := debouncer.pop("a"); ok {
		t.Fatalf("expected entry removed after pop")
	}
}
