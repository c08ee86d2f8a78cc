package terminal

// OutputFilter transforms a stream of terminal output chunks. Filters may
// hold bytes back between calls; Flush releases them.
type OutputFilter interface {
	Write([]byte) []byte
	Flush() []byte
	Reset()
}

// FilterChain pipes output through multiple filters in order.
type FilterChain struct {
	filters []OutputFilter
}

func NewFilterChain(filters ...OutputFilter) *FilterChain {
	return &FilterChain{filters: filters}
}

// NewSpeechFilter returns the chain used before text reaches the reader:
// whole UTF-8 runes only, then escape sequences and control bytes removed.
func NewSpeechFilter() *FilterChain {
	return NewFilterChain(NewUTF8GuardFilter(), NewANSIStripFilter())
}

func (c *FilterChain) Write(data []byte) []byte {
	out := data
	for _, filter := range c.filters {
		out = filter.Write(out)
		if len(out) == 0 {
			return nil
		}
	}
	return out
}

// Flush drains each filter and pipes what it released through the rest of
// the chain.
func (c *FilterChain) Flush() []byte {
	var out []byte
	for i, filter := range c.filters {
		segment := filter.Flush()
		for j := i + 1; j < len(c.filters) && len(segment) > 0; j++ {
			segment = c.filters[j].Write(segment)
		}
		out = append(out, segment...)
	}
	return out
}

func (c *FilterChain) Reset() {
	for _, filter := range c.filters {
		filter.Reset()
	}
}
