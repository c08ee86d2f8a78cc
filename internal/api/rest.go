package api

import (
	"net/http"
	"strings"

	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"
	"ariaterm/internal/region"
)

const (
	priorityPolite    = "polite"
	priorityAssertive = "assertive"
)

// Announcer is the reader surface the API drives. *announce.Reader
// satisfies it.
type Announcer interface {
	AnnounceMessage(text string) bool
	AssertiveAnnounce(text string)
	Clear()
	SetAccessibilityEnabled(enabled bool)
	AccessibilityEnabled() bool
}

type RestHandler struct {
	Reader  Announcer
	Regions []*region.Region
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

type announceRequest struct {
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
}

type announceResponse struct {
	Priority string `json:"priority"`
	// Accepted is false when polite text was dropped because accessibility
	// is disabled.
	Accepted bool `json:"accepted"`
}

type accessibilityPayload struct {
	Enabled *bool `json:"enabled"`
}

type accessibilityResponse struct {
	Enabled bool `json:"enabled"`
}

type regionsResponse struct {
	AccessibilityEnabled bool              `json:"accessibility_enabled"`
	Regions              []region.Snapshot `json:"regions"`
}

func (h *RestHandler) requireReader() *apiError {
	if h.Reader == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "reader unavailable"}
	}
	return nil
}

func (h *RestHandler) handleRegions(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	if err := h.requireReader(); err != nil {
		return err
	}
	response := regionsResponse{
		AccessibilityEnabled: h.Reader.AccessibilityEnabled(),
		Regions:              make([]region.Snapshot, 0, len(h.Regions)),
	}
	for _, live := range h.Regions {
		response.Regions = append(response.Regions, live.Snapshot())
	}
	writeJSON(w, http.StatusOK, response)
	return nil
}

func (h *RestHandler) handleAnnounce(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	if err := h.requireReader(); err != nil {
		return err
	}

	var request announceRequest
	if err := decodeJSONBody(w, r, &request); err != nil {
		return err
	}
	if request.Text == "" {
		return &apiError{Status: http.StatusBadRequest, Message: "missing text"}
	}

	priority := strings.ToLower(strings.TrimSpace(request.Priority))
	response := announceResponse{Priority: priority, Accepted: true}
	switch priority {
	case "", priorityPolite:
		response.Priority = priorityPolite
		response.Accepted = h.Reader.AnnounceMessage(request.Text)
	case priorityAssertive:
		h.Reader.AssertiveAnnounce(request.Text)
	default:
		return &apiError{Status: http.StatusBadRequest, Message: "priority must be polite or assertive"}
	}

	h.Logger.Debug("announcement received", map[string]string{
		"priority": response.Priority,
		"length":   itoa(len(request.Text)),
	})
	writeJSON(w, http.StatusAccepted, response)
	return nil
}

func (h *RestHandler) handleClear(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	if err := h.requireReader(); err != nil {
		return err
	}
	h.Reader.Clear()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *RestHandler) handleAccessibility(w http.ResponseWriter, r *http.Request) *apiError {
	if err := h.requireReader(); err != nil {
		return err
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, accessibilityResponse{Enabled: h.Reader.AccessibilityEnabled()})
		return nil
	case http.MethodPut:
		var payload accessibilityPayload
		if err := decodeJSONBody(w, r, &payload); err != nil {
			return err
		}
		if payload.Enabled == nil {
			return &apiError{Status: http.StatusBadRequest, Message: "missing enabled"}
		}
		h.Reader.SetAccessibilityEnabled(*payload.Enabled)
		h.Logger.Info("accessibility toggled", map[string]string{"enabled": boolString(*payload.Enabled)})
		writeJSON(w, http.StatusOK, accessibilityResponse{Enabled: h.Reader.AccessibilityEnabled()})
		return nil
	default:
		return methodNotAllowed(w, "GET, PUT")
	}
}

func (h *RestHandler) handleMetrics(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	registry := h.Metrics
	if registry == nil {
		registry = metrics.Default
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = registry.WritePrometheus(w)
	return nil
}

func (h *RestHandler) handleLogs(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	if h.Logger == nil || h.Logger.Buffer() == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "log buffer unavailable"}
	}
	minLevel := logging.LevelDebug
	if raw := strings.TrimSpace(r.URL.Query().Get("level")); raw != "" {
		parsed, ok := logging.ParseLevel(raw)
		if !ok {
			return &apiError{Status: http.StatusBadRequest, Message: "invalid log level"}
		}
		minLevel = parsed
	}
	writeJSON(w, http.StatusOK, h.Logger.Buffer().Since(minLevel))
	return nil
}
