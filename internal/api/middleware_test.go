package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ariaterm/internal/logging"

	"golang.org/x/time/rate"
)

func TestLoggingMiddlewareRecordsRequest(t *testing.T) {
	buffer := logging.NewLogBuffer(10)
	logger := logging.NewLoggerWithOutput(buffer, logging.LevelDebug, io.Discard)

	handler := loggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	entries := buffer.List()
	if len(entries) == 0 {
		t.Fatalf("expected log entries")
	}
	entry := entries[0]
	if entry.Fields["path"] != "/api/regions" || entry.Fields["method"] != http.MethodGet {
		t.Fatalf("unexpected fields %v", entry.Fields)
	}
}

func TestRestHandlerSetsHeadersAndErrors(t *testing.T) {
	handler := restHandler("", nil, func(w http.ResponseWriter, r *http.Request) *apiError {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "down"}
	})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/regions", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}
	if recorder.Header().Get("Cache-Control") != cacheControlNoStore {
		t.Fatalf("expected no-store cache control")
	}
}

func TestRateLimitMiddlewareNilLimiterPasses(t *testing.T) {
	calls := 0
	handler := rateLimitMiddleware(nil, func(w http.ResponseWriter, r *http.Request) *apiError {
		calls++
		return nil
	})
	for i := 0; i < 5; i++ {
		if err := handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/announce", nil)); err != nil {
			t.Fatalf("unexpected error %+v", err)
		}
	}
	if calls != 5 {
		t.Fatalf("expected 5 calls, got %d", calls)
	}
}

func TestRetryAfter(t *testing.T) {
	if got := retryAfter(rate.Limit(0.5)); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
	if got := retryAfter(rate.Limit(20)); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
}
