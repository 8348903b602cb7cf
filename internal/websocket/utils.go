package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single outbound frame.
	writeWait = 10 * time.Second
	// readWait is generous: a quiet client is still fine as long as its
	// autosave cadence (or a ping) arrives within this window.
	readWait = 5 * time.Minute
)

// WriteTyped sends one typed event frame with a write deadline applied.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// WriteError sends an error event without closing the stream; the client
// decides whether the session can continue.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next inbound frame, refreshing the idle deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		return err
	}
	return conn.ReadJSON(v)
}
