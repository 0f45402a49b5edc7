package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"order-notifier/internal/domain/user"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	authWindow       = 5 * time.Second
	readIdle         = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket keeps one authenticated push connection per driver.
type WebSocket struct {
	logger       *logger.Logger
	jwtMgr       *jwt.Manager
	pingInterval time.Duration
	writeLocks   sync.Map // key: *websocket.Conn -> *sync.Mutex
	driverConns  sync.Map // key: driverID -> *websocket.Conn
}

// NewWebSocket creates a WebSocket handler with JWT auth.
func NewWebSocket(logger *logger.Logger, jwtMgr *jwt.Manager) *WebSocket {
	return &WebSocket{
		logger:       logger,
		jwtMgr:       jwtMgr,
		pingInterval: 30 * time.Second,
	}
}

// ConnectDriver handles WebSocket connections from drivers with first-frame JWT auth.
func (ws *WebSocket) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()               // close the socket last
	defer ws.writeLocks.Delete(conn) // forget per-connection mutex (idempotent)

	// 2) Auth deadline
	conn.SetReadLimit(64 << 10)
	if err := conn.SetReadDeadline(time.Now().Add(authWindow)); err != nil {
		ws.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		_ = ws.sendAuthError(conn, "internal server error")
		return
	}

	// 3) First frame must be {"type":"auth","token":"Bearer <jwt>"}
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		ws.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		_ = ws.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}
	if msgType != websocket.TextMessage {
		ws.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		_ = ws.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, ws.jwtMgr, user.RoleDriver)
	if err != nil {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		_ = ws.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// 4) Path param must match the subject in claims
	if drvID := r.PathValue("driver_id"); drvID != "" && drvID != res.Claims.Subject {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Driver ID mismatch", jwt.ErrSubjectMismatch, map[string]any{
			"path_driver_id": drvID,
			"token_subject":  res.Claims.Subject,
		})
		_ = ws.sendAuthError(conn, "driver ID mismatch")
		return
	}
	driverID := res.Claims.Subject

	if err := ws.sendAuthSuccess(conn, driverID); err != nil {
		ws.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	// 5) Keepalive: pongs extend the read deadline, pings go out on a timer
	_ = conn.SetReadDeadline(time.Now().Add(readIdle))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readIdle))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go ws.pingLoop(r, conn, stopPing)

	// 6) Register for outbound notifications; unregister on exit
	ws.RegisterDriverConn(driverID, conn)
	defer ws.RemoveDriverConn(driverID, conn)

	ws.logger.Info(r.Context(), "ws_connected", "Driver WebSocket connected",
		map[string]any{"driver_id": driverID})

	// 7) Read loop: drivers only acknowledge or ping
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Error(r.Context(), "ws_unexpected_close", "Driver connection closed unexpectedly", err, map[string]any{
					"driver_id": driverID,
				})
			} else {
				ws.logger.Info(r.Context(), "ws_connection_closed", "Driver connection closed", map[string]any{
					"driver_id": driverID,
				})
			}
			ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdle))

		var msg struct {
			Type    string `json:"type"`
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
			continue
		}

		switch msg.Type {
		case "ack":
			ws.logger.Info(r.Context(), "notification_acknowledged", "Driver acknowledged notification",
				map[string]any{"driver_id": driverID, "order_id": msg.OrderID})
		case "ping":
			_ = ws.writeJSON(conn, map[string]any{"type": "pong", "timestamp": time.Now().UTC().Format(time.RFC3339)})
		default:
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

func (ws *WebSocket) pingLoop(r *http.Request, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mu := ws.lockOf(conn)
			mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// closing unblocks the reader
				_ = conn.Close()
				ws.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}
}

// sendAuthError sends authentication error message to client
func (ws *WebSocket) sendAuthError(conn *websocket.Conn, message string) error {
	return ws.writeJSON(conn, map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
}

// sendAuthSuccess sends authentication success message to client
func (ws *WebSocket) sendAuthSuccess(conn *websocket.Conn, driverID string) error {
	return ws.writeJSON(conn, map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"driver_id": driverID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
