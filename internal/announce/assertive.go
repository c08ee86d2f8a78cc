package announce

// assertiveChannel writes straight to its sink. Each call is independent of
// the previous one.
type assertiveChannel struct {
	sink Sink
}

func (c *assertiveChannel) announce(text string) string {
	written := EncodeDistinct(text, c.sink.Value())
	c.sink.SetValue(written)
	return written
}

// clear bypasses EncodeDistinct: an empty write is either a real change or a
// no-op for the host.
func (c *assertiveChannel) clear() {
	c.sink.SetValue("")
}
