package event

import "time"

// Event represents a typed event with an occurrence timestamp.
type Event interface {
	Type() string
	Timestamp() time.Time
}

const TypeRegionChanged = "region_changed"

// RegionEvent records a change of a live region's watched attribute.
type RegionEvent struct {
	Region     string    `json:"region"`
	Attribute  string    `json:"attribute"`
	Value      string    `json:"value"`
	OccurredAt time.Time `json:"timestamp"`
}

func NewRegionEvent(region, attribute, value string) RegionEvent {
	return RegionEvent{
		Region:     region,
		Attribute:  attribute,
		Value:      value,
		OccurredAt: time.Now().UTC(),
	}
}

func (e RegionEvent) Type() string {
	return TypeRegionChanged
}

func (e RegionEvent) Timestamp() time.Time {
	return e.OccurredAt
}
