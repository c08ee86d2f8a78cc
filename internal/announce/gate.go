package announce

// gate decides whether polite text is accepted. It has no say over the
// assertive channel.
type gate struct {
	enabled bool
}

// set stores value and reports whether it changed.
func (g *gate) set(value bool) bool {
	changed := g.enabled != value
	g.enabled = value
	return changed
}
