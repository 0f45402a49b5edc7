package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrDriverNotConnected = errors.New("driver not connected")

// wsWriteClose sends a close control frame with the given code and reason.
func (ws *WebSocket) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := ws.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (ws *WebSocket) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := ws.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// lockOf returns the mutex for a specific connection
func (ws *WebSocket) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := ws.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := ws.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

// writeJSON marshals v and writes a single TextMessage to the given connection.
func (ws *WebSocket) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// SendToDriver pushes msg as JSON to the driver's live connection.
func (ws *WebSocket) SendToDriver(driverID string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	conn, ok := ws.GetDriverConn(driverID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDriverNotConnected, driverID)
	}

	return ws.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// RegisterDriverConn stores conn as the driver's push connection. An older
// connection of the same driver is closed.
func (ws *WebSocket) RegisterDriverConn(driverID string, conn *websocket.Conn) {
	if prev, loaded := ws.driverConns.Swap(driverID, conn); loaded {
		if old, ok := prev.(*websocket.Conn); ok && old != conn {
			ws.wsWriteClose(old, websocket.ClosePolicyViolation, "replaced by a newer connection")
			_ = old.Close()
		}
	}
}

// GetDriverConn returns the driver's live connection.
func (ws *WebSocket) GetDriverConn(driverID string) (*websocket.Conn, bool) {
	v, ok := ws.driverConns.Load(driverID)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*websocket.Conn)
	return conn, ok && conn != nil
}

// RemoveDriverConn forgets conn unless the driver already reconnected on another one.
func (ws *WebSocket) RemoveDriverConn(driverID string, conn *websocket.Conn) {
	if ws.driverConns.CompareAndDelete(driverID, conn) {
		ws.logger.Info(context.Background(), "driver_ws_removed", "Driver WebSocket connection removed",
			map[string]any{"driver_id": driverID})
	}
}

// ConnectedDrivers returns how many drivers hold a live connection.
func (ws *WebSocket) ConnectedDrivers() int {
	n := 0
	ws.driverConns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
