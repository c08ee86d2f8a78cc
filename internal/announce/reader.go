package announce

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"
)

// DefaultInterval is the minimum time between two polite writes.
const DefaultInterval = 50 * time.Millisecond

const (
	cancelReasonInterrupt = "interrupt"
	cancelReasonDisable   = "disable"
)

// Options configures a Reader. Zero values select DefaultInterval, the
// system clock and metrics.Default.
type Options struct {
	Interval      time.Duration
	Clock         Clock
	StartDisabled bool
	Logger        *logging.Logger
	Metrics       *metrics.Registry
}

// Reader feeds the polite and assertive live regions.
type Reader struct {
	mu        sync.Mutex
	polite    *politeChannel
	assertive *assertiveChannel
	gate      gate
	logger    *logging.Logger
	metrics   *metrics.Registry
}

// New creates a Reader writing polite text to polite and urgent text to
// assertive.
func New(polite, assertive Sink, options Options) *Reader {
	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := options.Clock
	if clock == nil {
		clock = SystemClock()
	}
	registry := options.Metrics
	if registry == nil {
		registry = metrics.Default
	}
	reader := &Reader{
		polite:    newPoliteChannel(polite, clock, interval),
		assertive: &assertiveChannel{sink: assertive},
		gate:      gate{enabled: !options.StartDisabled},
		logger:    options.Logger,
		metrics:   registry,
	}
	reader.polite.fire = reader.flush
	return reader
}

// Announce queues text for the polite region.
func (r *Reader) Announce(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.acceptLocked() {
		return
	}
	r.polite.append(text)
}

// NewLine ends the current polite line.
func (r *Reader) NewLine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.acceptLocked() {
		return
	}
	r.polite.breakLine()
}

// AnnounceText queues streamed terminal output. Each "\n" becomes a line
// break, and text continues the current line when the previous chunk stopped
// mid-line. The whole chunk lands in a single flush. It reports whether the
// gate let the text through.
func (r *Reader) AnnounceText(text string) bool {
	return r.queueLines(text, (*politeChannel).extend)
}

// AnnounceMessage queues a complete message for the polite region. Lines are
// split on "\n" and each line joins pending text as its own fragment.
func (r *Reader) AnnounceMessage(text string) bool {
	return r.queueLines(text, (*politeChannel).append)
}

func (r *Reader) queueLines(text string, add func(*politeChannel, string)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if text == "" {
		return r.gate.enabled
	}
	if !r.acceptLocked() {
		return false
	}
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			r.polite.breakLine()
		}
		if part != "" {
			add(r.polite, part)
		}
	}
	return true
}

// AssertiveAnnounce writes text to the assertive region right away and drops
// any polite text that has not been written yet. It ignores the
// accessibility gate.
func (r *Reader) AssertiveAnnounce(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.polite.cancelPending() {
		r.metrics.IncPoliteCancelled(cancelReasonInterrupt)
		r.logger.Debug("polite announcement interrupted", nil)
	}
	written := r.assertive.announce(text)
	r.metrics.IncAssertiveWrite()
	if written != text {
		r.metrics.IncDedupEncoded("assertive")
	}
}

// Clear empties the assertive region.
func (r *Reader) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assertive.clear()
	r.metrics.IncAssertiveClear()
}

// SetAccessibilityEnabled opens or closes the polite gate. Closing it drops
// text that is still waiting to be written.
func (r *Reader) SetAccessibilityEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.gate.set(enabled)
	if !enabled && r.polite.cancelPending() {
		r.metrics.IncPoliteCancelled(cancelReasonDisable)
	}
	if changed {
		r.logger.Info("accessibility gate changed", map[string]string{
			"enabled": strconv.FormatBool(enabled),
		})
	}
}

// AccessibilityEnabled reports whether the polite gate is open.
func (r *Reader) AccessibilityEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gate.enabled
}

// Pending reports whether polite text is waiting for a flush.
func (r *Reader) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polite.hasPending()
}

// Close stops the armed flush, if any, without writing.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polite.cancelPending()
}

func (r *Reader) acceptLocked() bool {
	if r.gate.enabled {
		return true
	}
	r.metrics.IncGateDropped()
	return false
}

func (r *Reader) flush(generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, ok := r.polite.flush(generation)
	if !ok {
		return
	}
	r.metrics.IncPoliteFlush()
	deduped := result.written != result.rendered
	if deduped {
		r.metrics.IncDedupEncoded("polite")
	}
	if r.logger.Enabled(logging.LevelDebug) {
		r.logger.Debug("polite flush", map[string]string{
			"chars":   strconv.Itoa(len(result.written)),
			"deduped": strconv.FormatBool(deduped),
		})
	}
}
