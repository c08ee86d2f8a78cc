package announce

import "time"

// politeChannel buffers text and writes it to its sink no more often than
// once per interval. Callers serialize access; the fire callback must take
// the same lock before calling flush.
type politeChannel struct {
	sink     Sink
	clock    Clock
	interval time.Duration
	fire     func(generation uint64)

	pending     *lineBuffer
	timer       Timer
	generation  uint64
	lastFlushAt time.Time
}

func newPoliteChannel(sink Sink, clock Clock, interval time.Duration) *politeChannel {
	return &politeChannel{
		sink:        sink,
		clock:       clock,
		interval:    interval,
		lastFlushAt: clock.Now(),
	}
}

func (c *politeChannel) append(fragment string) {
	c.buffer().appendText(fragment)
	c.schedule()
}

func (c *politeChannel) extend(fragment string) {
	c.buffer().extendText(fragment)
	c.schedule()
}

func (c *politeChannel) breakLine() {
	c.buffer().appendBreak()
	c.schedule()
}

func (c *politeChannel) buffer() *lineBuffer {
	if c.pending == nil {
		c.pending = newLineBuffer()
	}
	return c.pending
}

// schedule arms a flush at max(now, lastFlushAt+interval) unless one is
// already armed. Text arriving before it fires joins the same flush.
func (c *politeChannel) schedule() {
	if c.timer != nil {
		return
	}
	delay := c.lastFlushAt.Add(c.interval).Sub(c.clock.Now())
	if delay < 0 {
		delay = 0
	}
	c.generation++
	generation := c.generation
	c.timer = c.clock.AfterFunc(delay, func() {
		if c.fire != nil {
			c.fire(generation)
		}
	})
}

// cancelPending drops buffered text and the armed flush. It reports whether
// anything was dropped.
func (c *politeChannel) cancelPending() bool {
	dropped := c.pending != nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	c.pending = nil
	return dropped
}

type flushResult struct {
	rendered string
	written  string
}

// flush writes the pending text if generation still identifies the armed
// timer. Stale callbacks from a cancelled schedule are ignored.
func (c *politeChannel) flush(generation uint64) (flushResult, bool) {
	if generation != c.generation || c.pending == nil {
		return flushResult{}, false
	}
	rendered := c.pending.render()
	written := EncodeDistinct(rendered, c.sink.Value())
	c.sink.SetValue(written)

	if now := c.clock.Now(); now.After(c.lastFlushAt) {
		c.lastFlushAt = now
	}
	c.pending = nil
	c.timer = nil
	return flushResult{rendered: rendered, written: written}, true
}

func (c *politeChannel) hasPending() bool {
	return c.pending != nil
}
