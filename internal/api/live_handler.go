package api

import (
	"net/http"

	"ariaterm/internal/event"
	"ariaterm/internal/logging"
	"ariaterm/internal/region"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	frameHello         = "hello"
	frameRegionChanged = event.TypeRegionChanged
)

type liveRegionState struct {
	Name       string            `json:"name"`
	Value      string            `json:"value"`
	Attributes map[string]string `json:"attributes"`
}

type helloFrame struct {
	Type                 string            `json:"type"`
	ConnectionID         string            `json:"connection_id"`
	AccessibilityEnabled bool              `json:"accessibility_enabled"`
	Regions              []liveRegionState `json:"regions"`
}

type regionFrame struct {
	Type string `json:"type"`
	event.RegionEvent
}

// LiveHandler streams live region changes to a websocket client. The client
// first receives a hello frame with the current region values, then one
// frame per change.
type LiveHandler struct {
	Bus            *event.Bus[event.RegionEvent]
	Regions        []*region.Region
	Reader         Announcer
	AuthToken      string
	AllowedOrigins []string
	Logger         *logging.Logger
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireWSToken(w, r, h.AuthToken, h.Logger) {
		return
	}
	if h.Bus == nil {
		rejectWebSocket(w, r, h.Logger, http.StatusServiceUnavailable, "live region stream unavailable", nil)
		return
	}

	// Subscribe before reading the snapshot so no change falls between them.
	events, cancel := h.Bus.Subscribe()
	if events == nil {
		rejectWebSocket(w, r, h.Logger, http.StatusServiceUnavailable, "live region stream unavailable", nil)
		return
	}
	defer cancel()

	conn, err := upgradeWebSocket(w, r, h.AllowedOrigins)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logWSFailure(h.Logger, r, http.StatusBadRequest, "websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	logger := h.Logger.With(map[string]string{"connection_id": connectionID})
	logger.Info("live client connected", map[string]string{"remote_addr": r.RemoteAddr})
	defer logger.Info("live client disconnected", nil)

	if err := writeJSONFrame(conn, h.hello(connectionID)); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case change, ok := <-events:
			if !ok {
				closeWebSocket(conn, websocket.CloseGoingAway, "shutting down")
				return
			}
			if err := writeJSONFrame(conn, regionFrame{Type: frameRegionChanged, RegionEvent: change}); err != nil {
				logger.Debug("live client write failed", map[string]string{"error": err.Error()})
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *LiveHandler) hello(connectionID string) helloFrame {
	frame := helloFrame{
		Type:         frameHello,
		ConnectionID: connectionID,
		Regions:      make([]liveRegionState, 0, len(h.Regions)),
	}
	if h.Reader != nil {
		frame.AccessibilityEnabled = h.Reader.AccessibilityEnabled()
	}
	for _, live := range h.Regions {
		snapshot := live.Snapshot()
		frame.Regions = append(frame.Regions, liveRegionState{
			Name:       snapshot.Name,
			Value:      snapshot.Value,
			Attributes: snapshot.Attributes,
		})
	}
	return frame
}
