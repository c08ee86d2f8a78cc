package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ariaterm/internal/announce"
	"ariaterm/internal/event"
	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"
	"ariaterm/internal/otel"
	"ariaterm/internal/region"
)

type apiFixture struct {
	server    *httptest.Server
	reader    *announce.Reader
	clock     *announce.FakeClock
	bus       *event.Bus[event.RegionEvent]
	polite    *region.Region
	assertive *region.Region
	logs      *logging.LogBuffer
	metrics   *metrics.Registry
}

type fixtureOptions struct {
	token         string
	announceRate  float64
	announceBurst int
	telemetry     []otel.Option
}

func newAPIFixture(t *testing.T, options fixtureOptions) *apiFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := &metrics.Registry{}
	logs := logging.NewLogBuffer(50)
	logger := logging.NewLoggerWithOutput(logs, logging.LevelDebug, io.Discard)
	bus := event.NewBus[event.RegionEvent](ctx, event.BusOptions{Name: "regions", Registry: registry})
	polite, assertive := region.NewPair(bus, 8)
	clock := announce.NewFakeClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	reader := announce.New(polite, assertive, announce.Options{Clock: clock, Metrics: registry, Logger: logger})
	t.Cleanup(reader.Close)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Options{
		Reader:        reader,
		Bus:           bus,
		Regions:       []*region.Region{polite, assertive},
		Logger:        logger,
		Metrics:       registry,
		AuthToken:     options.token,
		AnnounceRate:  options.announceRate,
		AnnounceBurst: options.announceBurst,
		Telemetry:     options.telemetry,
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &apiFixture{
		server:    server,
		reader:    reader,
		clock:     clock,
		bus:       bus,
		polite:    polite,
		assertive: assertive,
		logs:      logs,
		metrics:   registry,
	}
}
