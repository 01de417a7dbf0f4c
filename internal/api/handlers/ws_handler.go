package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/interview"
)

const subscriberBuffer = 64

// Hub fans coordinator events out to websocket subscribers. Publish never
// blocks: a subscriber that falls behind loses events.
type Hub struct {
	log *logrus.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{log: log, subs: make(map[chan []byte]struct{})}
}

func (h *Hub) Publish(e interview.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		h.log.WithError(err).Error("event not serialisable")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.log.WithField("type", e.Type).Warn("slow event subscriber; event dropped")
		}
	}
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

type WSHandler struct {
	hub      *Hub
	iv       Interview
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, iv Interview) *WSHandler {
	return &WSHandler{
		hub: hub,
		iv:  iv,
		upgrader: websocket.Upgrader{
			// companion server listens on localhost only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// Events streams state, transcript and channel events. The first frame is a
// snapshot so a late subscriber can render the current session.
func (h *WSHandler) Events(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	ch := h.hub.subscribe()
	defer h.hub.unsubscribe(ch)

	wc := &wsConn{c: conn}
	snap, _ := json.Marshal(gin.H{"type": "snapshot", "snapshot": h.iv.Snapshot()})
	if err := wc.writeText(snap); err != nil {
		return
	}

	// reader: only to notice the client going away
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-c.Request.Context().Done():
			return
		case b := <-ch:
			if err := wc.writeText(b); err != nil {
				return
			}
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
