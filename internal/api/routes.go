package api

import (
	"net/http"

	"ariaterm/internal/event"
	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"
	"ariaterm/internal/otel"
	"ariaterm/internal/region"

	"golang.org/x/time/rate"
)

type Options struct {
	Reader         Announcer
	Bus            *event.Bus[event.RegionEvent]
	Regions        []*region.Region
	Logger         *logging.Logger
	Metrics        *metrics.Registry
	AuthToken      string
	AllowedOrigins []string
	// AnnounceRate is announcements per second across all clients. Zero
	// disables rate limiting.
	AnnounceRate  float64
	AnnounceBurst int
	// Telemetry overrides the global OpenTelemetry meter and tracer used for
	// the REST routes.
	Telemetry []otel.Option
}

func RegisterRoutes(mux *http.ServeMux, options Options) {
	logger := options.Logger.Component("api")
	rest := &RestHandler{
		Reader:  options.Reader,
		Regions: options.Regions,
		Logger:  logger,
		Metrics: options.Metrics,
	}

	var limiter *rate.Limiter
	if options.AnnounceRate > 0 {
		burst := options.AnnounceBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.AnnounceRate), burst)
	}

	wrap := func(handler http.Handler) http.Handler {
		return loggingMiddleware(logger, handler)
	}
	instrument, err := otel.NewAPIInstrumentationMiddleware(options.Telemetry...)
	if err != nil {
		logger.Warn("otel api middleware unavailable", map[string]string{"error": err.Error()})
		instrument = func(next http.Handler) http.Handler { return next }
	}
	route := func(path, operation string, handler http.Handler) {
		mux.Handle(path, otel.WithRouteInfo(instrument(wrap(handler)), otel.RouteInfo{
			Route:     path,
			Operation: operation,
		}))
	}
	token := options.AuthToken

	mux.Handle("/ws/live", wrap(&LiveHandler{
		Bus:            options.Bus,
		Regions:        options.Regions,
		Reader:         options.Reader,
		AuthToken:      token,
		AllowedOrigins: options.AllowedOrigins,
		Logger:         logger,
	}))
	route("/api/regions", "regions", restHandler(token, logger, rest.handleRegions))
	route("/api/announce", "announce", restHandler(token, logger, rateLimitMiddleware(limiter, rest.handleAnnounce)))
	route("/api/clear", "clear", restHandler(token, logger, rest.handleClear))
	route("/api/accessibility", "accessibility", restHandler(token, logger, rest.handleAccessibility))
	route("/api/logs", "logs", restHandler(token, logger, rest.handleLogs))
	route("/metrics", "metrics", restHandler(token, logger, rest.handleMetrics))
}
