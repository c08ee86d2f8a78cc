package api

import (
	"math"
	"net/http"
	"strconv"

	"ariaterm/internal/logging"
	"ariaterm/internal/otel"

	"golang.org/x/time/rate"
)

type apiError struct {
	Status  int
	Message string
	Code    string
}

type apiHandler func(http.ResponseWriter, *http.Request) *apiError

const cacheControlNoStore = "no-store, must-revalidate"

func setSecurityHeaders(w http.ResponseWriter, cacheControl string) {
	headers := w.Header()
	headers.Set("X-Content-Type-Options", "nosniff")
	if cacheControl != "" {
		headers.Set("Cache-Control", cacheControl)
	}
}

func securityHeadersHandler(cacheControl string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, cacheControl)
		next(w, r)
	}
}

func authMiddleware(token string, next apiHandler) apiHandler {
	return func(w http.ResponseWriter, r *http.Request) *apiError {
		if !validateToken(r, token) {
			return &apiError{Status: http.StatusUnauthorized, Message: "unauthorized"}
		}
		return next(w, r)
	}
}

// rateLimitMiddleware rejects requests once limiter has no tokens left. A
// nil limiter lets everything through.
func rateLimitMiddleware(limiter *rate.Limiter, next apiHandler) apiHandler {
	return func(w http.ResponseWriter, r *http.Request) *apiError {
		if limiter != nil && !limiter.Allow() {
			w.Header().Set("Retry-After", retryAfter(limiter.Limit()))
			return &apiError{Status: http.StatusTooManyRequests, Message: "too many announcements"}
		}
		return next(w, r)
	}
}

// retryAfter is the whole seconds until one more token is available.
func retryAfter(limit rate.Limit) string {
	if limit <= 0 || limit == rate.Inf {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(limit))))
}

func jsonErrorMiddleware(logger *logging.Logger, next apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			if err.Status >= http.StatusInternalServerError {
				logger.Error("api request failed", map[string]string{
					"path":    r.URL.Path,
					"status":  strconv.Itoa(err.Status),
					"message": err.Message,
				})
			}
			otel.RecordAPIError(r.Context(), otel.APIErrorInfo{
				Status:  err.Status,
				Code:    errorCode(err),
				Message: err.Message,
			})
			writeJSONError(w, err)
		}
	}
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("api request", map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, allow string) *apiError {
	w.Header().Set("Allow", allow)
	return &apiError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
}

func restHandler(token string, logger *logging.Logger, handler apiHandler) http.HandlerFunc {
	return securityHeadersHandler(cacheControlNoStore, jsonErrorMiddleware(logger, authMiddleware(token, handler)))
}
