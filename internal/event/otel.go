package event

import (
	"context"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	MetricEventsPublished = "ariaterm.event.published"
	MetricEventsDropped   = "ariaterm.event.dropped"
)

// busInstruments mirrors the bus counters into OpenTelemetry.
type busInstruments struct {
	published metric.Int64Counter
	dropped   metric.Int64Counter
}

func newBusInstruments(meter metric.Meter) (*busInstruments, error) {
	if meter == nil {
		meter = otelapi.GetMeterProvider().Meter("ariaterm/event")
	}
	published, err := meter.Int64Counter(MetricEventsPublished,
		metric.WithDescription("Events published on a bus"),
	)
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter(MetricEventsDropped,
		metric.WithDescription("Deliveries skipped because a subscriber was full"),
	)
	if err != nil {
		return nil, err
	}
	return &busInstruments{published: published, dropped: dropped}, nil
}

func (i *busInstruments) recordPublished(bus, eventType string) {
	if i == nil {
		return
	}
	i.published.Add(context.Background(), 1, metric.WithAttributes(busAttributes(bus, eventType)...))
}

func (i *busInstruments) recordDropped(bus, eventType string) {
	if i == nil {
		return
	}
	i.dropped.Add(context.Background(), 1, metric.WithAttributes(busAttributes(bus, eventType)...))
}

func busAttributes(bus, eventType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("event.bus", bus),
		attribute.String("event.type", eventType),
	}
}
