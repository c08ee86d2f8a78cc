package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type instrumented struct {
	handler func(http.Handler) http.Handler
	reader  *sdkmetric.ManualReader
	spans   *tracetest.SpanRecorder
}

func newInstrumented(t *testing.T) instrumented {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() {
		_ = meterProvider.Shutdown(context.Background())
		_ = tracerProvider.Shutdown(context.Background())
	})

	handler, err := NewAPIInstrumentationMiddleware(
		WithMeter(meterProvider.Meter("test")),
		WithTracer(tracerProvider.Tracer("test")),
	)
	if err != nil {
		t.Fatalf("new middleware: %v", err)
	}
	return instrumented{handler: handler, reader: reader, spans: spans}
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string][]metricdata.DataPoint[int64] {
	t.Helper()
	var data metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &data); err != nil {
		t.Fatalf("collect: %v", err)
	}
	sums := map[string][]metricdata.DataPoint[int64]{}
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				sums[m.Name] = sum.DataPoints
			}
		}
	}
	return sums
}

func attrValue(set attribute.Set, key string) string {
	value, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return value.Emit()
}

func TestMiddlewareRecordsRouteAndStatus(t *testing.T) {
	inst := newInstrumented(t)
	handler := WithRouteInfo(inst.handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})), RouteInfo{Route: "/api/announce", Operation: "announce"})

	req := httptest.NewRequest(http.MethodPost, "/api/announce?token=secret", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	sums := collectSums(t, inst.reader)
	points := sums[MetricRequestCount]
	if len(points) != 1 || points[0].Value != 1 {
		t.Fatalf("expected one request point, got %+v", points)
	}
	if got := attrValue(points[0].Attributes, "http.route"); got != "/api/announce" {
		t.Fatalf("expected route attribute, got %q", got)
	}
	if got := attrValue(points[0].Attributes, "http.response.status_code"); got != "202" {
		t.Fatalf("expected status 202, got %q", got)
	}
	if errs := sums[MetricAPIErrorCount]; len(errs) != 0 {
		t.Fatalf("expected no error points, got %+v", errs)
	}
	if active := sums[MetricActiveRequests]; len(active) != 1 || active[0].Value != 0 {
		t.Fatalf("expected no requests in flight, got %+v", active)
	}

	ended := inst.spans.Ended()
	if len(ended) != 1 || ended[0].Name() != spanNameHTTPRequest {
		t.Fatalf("expected one request span, got %d", len(ended))
	}
}

func TestMiddlewareCountsRecordedErrors(t *testing.T) {
	inst := newInstrumented(t)
	handler := inst.handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RecordAPIError(r.Context(), APIErrorInfo{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "reader unavailable"})
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/regions", nil))

	points := collectSums(t, inst.reader)[MetricAPIErrorCount]
	if len(points) != 1 {
		t.Fatalf("expected one error point, got %+v", points)
	}
	if got := attrValue(points[0].Attributes, "error.type"); got != "service_unavailable" {
		t.Fatalf("expected error type from recorded code, got %q", got)
	}
	if got := attrValue(points[0].Attributes, "http.route"); got != "/api/regions" {
		t.Fatalf("expected path as route fallback, got %q", got)
	}

	span := inst.spans.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Fatalf("expected error status on 5xx span, got %v", span.Status())
	}
}

func TestMiddlewareLeavesClientErrorSpansUnset(t *testing.T) {
	inst := newInstrumented(t)
	handler := inst.handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/announce", nil))

	points := collectSums(t, inst.reader)[MetricAPIErrorCount]
	if len(points) != 1 || attrValue(points[0].Attributes, "error.type") != "429" {
		t.Fatalf("expected status as error type, got %+v", points)
	}
	if code := inst.spans.Ended()[0].Status().Code; code != codes.Unset {
		t.Fatalf("expected unset span status for 4xx, got %v", code)
	}
}

func TestRecordAPIErrorOutsideRequestIsNoop(t *testing.T) {
	RecordAPIError(context.Background(), APIErrorInfo{Status: http.StatusBadRequest})
}
