// Package region models the live-region elements an accessibility host
// watches. Each Region holds named attributes; changes to the watched
// attribute are published as event.RegionEvent so remote hosts can announce
// them.
package region

import (
	"sort"
	"sync"

	"ariaterm/internal/buffer"
	"ariaterm/internal/event"
)

const (
	Polite    = "polite"
	Assertive = "assertive"

	// LabelAttribute is the attribute hosts read and announce on change.
	LabelAttribute = "aria-label"
)

const defaultHistorySize = 32

// Publisher receives region changes. *event.Bus and *event.MockBus satisfy it.
type Publisher interface {
	Publish(event.RegionEvent)
}

type Region struct {
	name      string
	publisher Publisher

	mu         sync.Mutex
	attributes map[string]string
	history    *buffer.Ring[event.RegionEvent]
}

// New creates a region announcing at the given aria-live level.
func New(name, live string, publisher Publisher, historySize int) *Region {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Region{
		name:      name,
		publisher: publisher,
		attributes: map[string]string{
			"aria-live":    live,
			"aria-atomic":  "true",
			LabelAttribute: "",
		},
		history: buffer.NewRing[event.RegionEvent](historySize),
	}
}

// NewPair builds the polite and assertive regions sharing one publisher.
func NewPair(publisher Publisher, historySize int) (*Region, *Region) {
	return New(Polite, "polite", publisher, historySize), New(Assertive, "assertive", publisher, historySize)
}

func (r *Region) Name() string {
	return r.name
}

// SetAttribute stores value. A change to the watched attribute is recorded and
// published; rewriting the same value is silent, as it is for a real host.
func (r *Region) SetAttribute(name, value string) {
	r.mu.Lock()
	previous, existed := r.attributes[name]
	r.attributes[name] = value
	if name != LabelAttribute || (existed && previous == value) {
		r.mu.Unlock()
		return
	}
	change := event.NewRegionEvent(r.name, name, value)
	r.history.Add(change)
	r.mu.Unlock()

	if r.publisher != nil {
		r.publisher.Publish(change)
	}
}

func (r *Region) Attribute(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attributes[name]
}

// Value and SetValue expose the watched attribute as an announce.Sink.
func (r *Region) Value() string {
	return r.Attribute(LabelAttribute)
}

func (r *Region) SetValue(value string) {
	r.SetAttribute(LabelAttribute, value)
}

type Snapshot struct {
	Name       string              `json:"name"`
	Value      string              `json:"value"`
	Attributes map[string]string   `json:"attributes"`
	History    []event.RegionEvent `json:"history"`
}

func (r *Region) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	attributes := make(map[string]string, len(r.attributes))
	for key, value := range r.attributes {
		attributes[key] = value
	}
	return Snapshot{
		Name:       r.name,
		Value:      r.attributes[LabelAttribute],
		Attributes: attributes,
		History:    r.history.List(),
	}
}

// AttributeNames returns the attribute names in sorted order.
func (r *Region) AttributeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.attributes))
	for name := range r.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
