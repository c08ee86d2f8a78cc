// Package otel instruments the HTTP API with OpenTelemetry. Instruments come
// from the global providers unless options say otherwise, so without an
// installed SDK everything here is a no-op.
package otel

import (
	"context"
	"net/http"
	"strconv"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "ariaterm/api"
	spanNameHTTPRequest = "http.request"

	MetricRequestCount    = "ariaterm.http.requests"
	MetricRequestDuration = "ariaterm.http.request.duration"
	MetricActiveRequests  = "ariaterm.http.active_requests"
	MetricAPIErrorCount   = "ariaterm.http.errors"
)

// RouteInfo names the route a request matched, so metrics do not carry raw
// paths.
type RouteInfo struct {
	Route     string
	Operation string
}

type routeInfoKey struct{}

// APIErrorInfo is what the error middleware reports about a failed request.
type APIErrorInfo struct {
	Status  int
	Code    string
	Message string
}

type apiErrorKey struct{}

type apiMetrics struct {
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
	errorCounter    metric.Int64Counter
}

type apiMiddleware struct {
	metrics *apiMetrics
	tracer  trace.Tracer
}

type middlewareOptions struct {
	meter  metric.Meter
	tracer trace.Tracer
}

type Option func(*middlewareOptions)

func WithMeter(meter metric.Meter) Option {
	return func(options *middlewareOptions) {
		options.meter = meter
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(options *middlewareOptions) {
		options.tracer = tracer
	}
}

// NewAPIInstrumentationMiddleware returns a wrapper that traces each request
// as a server span and records request count, duration, in-flight requests
// and errors.
func NewAPIInstrumentationMiddleware(opts ...Option) (func(http.Handler) http.Handler, error) {
	options := middlewareOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.meter == nil {
		options.meter = otelapi.GetMeterProvider().Meter(instrumentationName)
	}
	if options.tracer == nil {
		options.tracer = otelapi.Tracer(instrumentationName)
	}
	metrics, err := newAPIMetrics(options.meter)
	if err != nil {
		return nil, err
	}
	middleware := &apiMiddleware{metrics: metrics, tracer: options.tracer}
	return middleware.wrap, nil
}

func WithRouteInfo(next http.Handler, info RouteInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), routeInfoKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecordAPIError attaches error details to the request's span and error
// counter. It does nothing outside an instrumented request.
func RecordAPIError(ctx context.Context, info APIErrorInfo) {
	if ctx == nil {
		return
	}
	tracker, ok := ctx.Value(apiErrorKey{}).(*APIErrorInfo)
	if !ok || tracker == nil {
		return
	}
	*tracker = info
}

func newAPIMetrics(meter metric.Meter) (*apiMetrics, error) {
	requestCounter, err := meter.Int64Counter(MetricRequestCount,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter(MetricActiveRequests,
		metric.WithDescription("Active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	errorCounter, err := meter.Int64Counter(MetricAPIErrorCount,
		metric.WithDescription("HTTP error count"),
	)
	if err != nil {
		return nil, err
	}
	return &apiMetrics{
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
		errorCounter:    errorCounter,
	}, nil
}

func (middleware *apiMiddleware) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := resolveRouteInfo(r)
		routeAttrs := []attribute.KeyValue{
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", route.Route),
			attribute.String("api.operation", route.Operation),
		}

		ctx := otelapi.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		errorInfo := &APIErrorInfo{}
		ctx = context.WithValue(ctx, apiErrorKey{}, errorInfo)
		ctx, span := middleware.tracer.Start(ctx, spanNameHTTPRequest,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(routeAttrs...),
		)
		defer span.End()

		middleware.metrics.activeRequests.Add(ctx, 1, metric.WithAttributes(routeAttrs...))
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r.WithContext(ctx))
		middleware.metrics.activeRequests.Add(ctx, -1, metric.WithAttributes(routeAttrs...))

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		statusAttrs := append(append([]attribute.KeyValue{}, routeAttrs...),
			attribute.Int("http.response.status_code", status),
		)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		middleware.metrics.requestCounter.Add(ctx, 1, metric.WithAttributes(statusAttrs...))
		middleware.metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(routeAttrs...))

		if status < http.StatusBadRequest && errorInfo.Status == 0 {
			return
		}
		errorType := errorInfo.Code
		if errorType == "" {
			errorType = strconv.Itoa(status)
		}
		errorAttrs := append(statusAttrs, attribute.String("error.type", errorType))
		middleware.metrics.errorCounter.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
		// Client errors stay unset on server spans.
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, errorInfo.Message)
		}
		if errorInfo.Message != "" {
			span.AddEvent("api.error", trace.WithAttributes(
				attribute.String("error.type", errorType),
				attribute.String("error.message", errorInfo.Message),
			))
		}
	})
}

func resolveRouteInfo(r *http.Request) RouteInfo {
	info, _ := r.Context().Value(routeInfoKey{}).(RouteInfo)
	if info.Route == "" {
		info.Route = r.URL.Path
	}
	if info.Operation == "" {
		info.Operation = operationForMethod(r.Method)
	}
	return info
}

func operationForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return "update"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(statusCode int) {
	if recorder.status == 0 {
		recorder.status = statusCode
	}
	recorder.ResponseWriter.WriteHeader(statusCode)
}

func (recorder *statusRecorder) Write(data []byte) (int, error) {
	if recorder.status == 0 {
		recorder.status = http.StatusOK
	}
	return recorder.ResponseWriter.Write(data)
}

func (recorder *statusRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}
