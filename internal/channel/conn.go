package channel

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(kind int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(kind, b)
}

func (w *wsConn) writeText(b []byte) error   { return w.write(websocket.TextMessage, b) }
func (w *wsConn) writeBinary(b []byte) error { return w.write(websocket.BinaryMessage, b) }

// close sends a close frame (best effort) and drops the connection.
func (w *wsConn) close() error {
	w.mu.Lock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.mu.Unlock()
	return w.c.Close()
}
