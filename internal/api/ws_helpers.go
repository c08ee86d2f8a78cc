package api

import (
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"ariaterm/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	wsBufferSize   = 1024
	wsWriteTimeout = 10 * time.Second
	// Control frame payloads are capped at 125 bytes, two of which hold the code.
	maxCloseReasonBytes = 123
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, allowedOrigins)
		},
	}
}

func requireWSToken(w http.ResponseWriter, r *http.Request, token string, logger *logging.Logger) bool {
	if validateToken(r, token) {
		return true
	}
	rejectWebSocket(w, r, logger, http.StatusUnauthorized, "unauthorized", nil)
	return false
}

func upgradeWebSocket(w http.ResponseWriter, r *http.Request, allowedOrigins []string) (*websocket.Conn, error) {
	return newUpgrader(allowedOrigins).Upgrade(w, r, nil)
}

// rejectWebSocket answers a handshake that will not be upgraded.
func rejectWebSocket(w http.ResponseWriter, r *http.Request, logger *logging.Logger, status int, message string, err error) {
	logWSFailure(logger, r, status, message, err)
	http.Error(w, message, status)
}

// closeWebSocket sends a close frame and releases conn.
func closeWebSocket(conn *websocket.Conn, code int, reason string) {
	payload := websocket.FormatCloseMessage(code, truncateCloseReason(reason))
	_ = conn.WriteControl(websocket.CloseMessage, payload, time.Now().Add(wsWriteTimeout))
	_ = conn.Close()
}

func logWSFailure(logger *logging.Logger, r *http.Request, status int, message string, err error) {
	if logger == nil || r == nil {
		return
	}
	fields := map[string]string{
		"path":       r.URL.Path,
		"status":     strconv.Itoa(status),
		"close_code": strconv.Itoa(closeCodeForStatus(status)),
		"message":    message,
	}
	if r.RemoteAddr != "" {
		fields["remote_addr"] = r.RemoteAddr
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("websocket error", fields)
		return
	}
	logger.Warn("websocket error", fields)
}

func closeCodeForStatus(status int) int {
	switch {
	case status == http.StatusBadRequest:
		return websocket.CloseProtocolError
	case status == http.StatusServiceUnavailable:
		return websocket.CloseTryAgainLater
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}

// truncateCloseReason trims reason to fit a close frame without splitting a rune.
func truncateCloseReason(reason string) string {
	if len(reason) <= maxCloseReasonBytes {
		return reason
	}
	cut := maxCloseReasonBytes
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

func writeJSONFrame(conn *websocket.Conn, payload any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(payload)
}
