package announce

// Sink is the announced value of one live region. The host announces the
// region whenever the value changes, and only then.
type Sink interface {
	Value() string
	SetValue(value string)
}
