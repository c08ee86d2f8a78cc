package announce

import (
	"testing"
	"time"
)

func TestFakeClockRunsTimersInDeadlineOrder(t *testing.T) {
	clock := NewFakeClock(time.Unix(100, 0))
	var order []string

	clock.AfterFunc(20*time.Millisecond, func() { order = append(order, "late") })
	clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "early") })
	stopped := clock.AfterFunc(15*time.Millisecond, func() { order = append(order, "stopped") })
	if !stopped.Stop() {
		t.Fatalf("expected stop to succeed")
	}
	if stopped.Stop() {
		t.Fatalf("expected second stop to report false")
	}

	clock.Advance(25 * time.Millisecond)
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("unexpected order %v", order)
	}
	if got := clock.Now(); !got.Equal(time.Unix(100, 0).Add(25 * time.Millisecond)) {
		t.Fatalf("unexpected now %v", got)
	}
}

func TestFakeClockRunsTimersArmedByCallbacks(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	var fired []time.Time

	clock.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, clock.Now())
		clock.AfterFunc(10*time.Millisecond, func() {
			fired = append(fired, clock.Now())
		})
	})

	clock.Advance(15 * time.Millisecond)
	if len(fired) != 1 {
		t.Fatalf("expected 1 callback, got %d", len(fired))
	}
	clock.Advance(5 * time.Millisecond)
	if len(fired) != 2 {
		t.Fatalf("expected chained callback, got %d", len(fired))
	}
	if !fired[1].Equal(time.Unix(0, 0).Add(20 * time.Millisecond)) {
		t.Fatalf("expected chained callback at 20ms, got %v", fired[1])
	}
	if clock.PendingTimers() != 0 {
		t.Fatalf("expected no pending timers")
	}
}
