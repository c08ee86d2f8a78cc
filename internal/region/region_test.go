package region

import (
	"testing"
	"time"

	"ariaterm/internal/announce"
	"ariaterm/internal/event"
	"ariaterm/internal/metrics"
)

func TestRegionPublishesOnlyChanges(t *testing.T) {
	bus := event.NewMockBus[event.RegionEvent]()
	polite := New(Polite, "polite", bus, 4)

	polite.SetValue("ls")
	polite.SetValue("ls")
	polite.SetAttribute("aria-live", "off")
	polite.SetValue("")

	events := bus.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d (%+v)", len(events), events)
	}
	if events[0].Value != "ls" || events[1].Value != "" {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Region != Polite || events[0].Attribute != LabelAttribute {
		t.Fatalf("unexpected event metadata %+v", events[0])
	}
	if got := polite.Attribute("aria-live"); got != "off" {
		t.Fatalf("expected aria-live off, got %q", got)
	}
}

func TestNewPairSeedsAttributes(t *testing.T) {
	polite, assertive := NewPair(nil, 0)

	if polite.Attribute("aria-live") != "polite" || assertive.Attribute("aria-live") != "assertive" {
		t.Fatalf("unexpected aria-live values")
	}
	if polite.Attribute("aria-atomic") != "true" {
		t.Fatalf("expected aria-atomic true")
	}
	names := assertive.AttributeNames()
	if len(names) != 3 || names[0] != "aria-atomic" || names[1] != LabelAttribute {
		t.Fatalf("unexpected attribute names %v", names)
	}
	assertive.SetValue("ok")
	if assertive.Value() != "ok" {
		t.Fatalf("expected value without publisher")
	}
}

func TestSnapshotKeepsRecentHistory(t *testing.T) {
	region := New(Assertive, "assertive", nil, 2)
	region.SetValue("one")
	region.SetValue("two")
	region.SetValue("three")

	snapshot := region.Snapshot()
	if snapshot.Value != "three" || snapshot.Name != Assertive {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if len(snapshot.History) != 2 || snapshot.History[0].Value != "two" {
		t.Fatalf("unexpected history %+v", snapshot.History)
	}
	snapshot.Attributes["aria-live"] = "changed"
	if region.Attribute("aria-live") != "assertive" {
		t.Fatalf("snapshot attributes must be a copy")
	}
}

func TestDuplicateAnnouncementsStillReachHost(t *testing.T) {
	bus := event.NewMockBus[event.RegionEvent]()
	polite, assertive := NewPair(bus, 8)
	clock := announce.NewFakeClock(time.Unix(0, 0))
	reader := announce.New(polite, assertive, announce.Options{
		Interval: 10 * time.Millisecond,
		Clock:    clock,
		Metrics:  &metrics.Registry{},
	})
	defer reader.Close()

	reader.AssertiveAnnounce("Build failed")
	reader.AssertiveAnnounce("Build failed")
	reader.Announce("done")
	clock.Advance(10 * time.Millisecond)
	reader.Announce("done")
	clock.Advance(10 * time.Millisecond)

	var values []string
	for _, change := range bus.Events() {
		values = append(values, change.Region+":"+change.Value)
	}
	want := []string{"assertive:Build failed", "assertive:\nBuild failed", "polite:done", "polite:\ndone"}
	if len(values) != len(want) {
		t.Fatalf("expected %q, got %q", want, values)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("expected %q, got %q", want, values)
		}
	}
}
