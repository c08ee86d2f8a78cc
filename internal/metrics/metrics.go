package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

type Registry struct {
	politeFlushes   atomic.Int64
	assertiveWrites atomic.Int64
	assertiveClears atomic.Int64
	gateDropped     atomic.Int64
	dedupEncoded    sync.Map
	politeCancelled sync.Map
	events          sync.Map
	subscribers     sync.Map
}

type eventStats struct {
	published atomic.Int64
	dropped   atomic.Int64
}

type eventKey struct {
	bus       string
	eventType string
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PoliteFlushes   int64            `json:"polite_flushes"`
	AssertiveWrites int64            `json:"assertive_writes"`
	AssertiveClears int64            `json:"assertive_clears"`
	GateDropped     int64            `json:"gate_dropped"`
	DedupEncoded    map[string]int64 `json:"dedup_encoded"`
	PoliteCancelled map[string]int64 `json:"polite_cancelled"`
}

var Default = &Registry{}

func (r *Registry) IncPoliteFlush() {
	if r == nil {
		return
	}
	r.politeFlushes.Add(1)
}

func (r *Registry) IncAssertiveWrite() {
	if r == nil {
		return
	}
	r.assertiveWrites.Add(1)
}

func (r *Registry) IncAssertiveClear() {
	if r == nil {
		return
	}
	r.assertiveClears.Add(1)
}

func (r *Registry) IncGateDropped() {
	if r == nil {
		return
	}
	r.gateDropped.Add(1)
}

func (r *Registry) IncDedupEncoded(channel string) {
	if r == nil {
		return
	}
	counter(&r.dedupEncoded, labelOrUnknown(channel)).Add(1)
}

func (r *Registry) IncPoliteCancelled(reason string) {
	if r == nil {
		return
	}
	counter(&r.politeCancelled, labelOrUnknown(reason)).Add(1)
}

func (r *Registry) IncEventPublished(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventStats(bus, eventType).published.Add(1)
}

func (r *Registry) IncEventDropped(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventStats(bus, eventType).dropped.Add(1)
}

func (r *Registry) SetEventSubscribers(bus string, count int) {
	if r == nil {
		return
	}
	counter(&r.subscribers, labelOrUnknown(bus)).Store(int64(count))
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		PoliteFlushes:   r.politeFlushes.Load(),
		AssertiveWrites: r.assertiveWrites.Load(),
		AssertiveClears: r.assertiveClears.Load(),
		GateDropped:     r.gateDropped.Load(),
		DedupEncoded:    loadCounters(&r.dedupEncoded),
		PoliteCancelled: loadCounters(&r.politeCancelled),
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "ariaterm_polite_flushes_total", "Polite region writes", r.politeFlushes.Load())
	writeCounter(writer, "ariaterm_assertive_writes_total", "Assertive region writes", r.assertiveWrites.Load())
	writeCounter(writer, "ariaterm_assertive_clears_total", "Assertive region clears", r.assertiveClears.Load())
	writeCounter(writer, "ariaterm_gate_dropped_total", "Polite calls dropped while accessibility is disabled", r.gateDropped.Load())

	writeLabeled(writer, "ariaterm_dedup_encoded_total", "Writes that needed a leading break to differ from the current value", "channel", loadCounters(&r.dedupEncoded))
	writeLabeled(writer, "ariaterm_polite_cancelled_total", "Pending polite text discarded before flush", "reason", loadCounters(&r.politeCancelled))
	writeLabeled(writer, "ariaterm_event_subscribers", "Current event bus subscribers", "bus", loadCounters(&r.subscribers))

	keys := r.eventKeys()
	writeHelp(writer, "ariaterm_events_published_total", "Events published per bus and type")
	fmt.Fprintln(writer, "# TYPE ariaterm_events_published_total counter")
	writeHelp(writer, "ariaterm_events_dropped_total", "Events dropped per bus and type")
	fmt.Fprintln(writer, "# TYPE ariaterm_events_dropped_total counter")
	for _, key := range keys {
		stats := r.eventStats(key.bus, key.eventType)
		labels := fmt.Sprintf("bus=%s,type=%s", formatLabel(key.bus), formatLabel(key.eventType))
		fmt.Fprintf(writer, "ariaterm_events_published_total{%s} %d\n", labels, stats.published.Load())
		fmt.Fprintf(writer, "ariaterm_events_dropped_total{%s} %d\n", labels, stats.dropped.Load())
	}

	return nil
}

func (r *Registry) eventStats(bus, eventType string) *eventStats {
	key := eventKey{bus: labelOrUnknown(bus), eventType: labelOrUnknown(eventType)}
	value, _ := r.events.LoadOrStore(key, &eventStats{})
	return value.(*eventStats)
}

func (r *Registry) eventKeys() []eventKey {
	var keys []eventKey
	r.events.Range(func(key, value interface{}) bool {
		if typed, ok := key.(eventKey); ok {
			keys = append(keys, typed)
		}
		return true
	})
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].bus == keys[j].bus {
			return keys[i].eventType < keys[j].eventType
		}
		return keys[i].bus < keys[j].bus
	})
	return keys
}

func counter(values *sync.Map, label string) *atomic.Int64 {
	value, _ := values.LoadOrStore(label, &atomic.Int64{})
	return value.(*atomic.Int64)
}

func loadCounters(values *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	values.Range(func(key, value interface{}) bool {
		name, ok := key.(string)
		if !ok {
			return true
		}
		out[name] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

func labelOrUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func writeLabeled(writer io.Writer, metric, help, label string, values map[string]int64) {
	writeHelp(writer, metric, help)
	metricType := "counter"
	if !strings.HasSuffix(metric, "_total") {
		metricType = "gauge"
	}
	fmt.Fprintf(writer, "# TYPE %s %s\n", metric, metricType)
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(writer, "%s{%s=%s} %d\n", metric, label, formatLabel(name), values[name])
	}
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
