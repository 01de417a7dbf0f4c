package channel

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// Chat is the coordinator-facing side of the chat channel.
type Chat interface {
	Send(ctx context.Context, text string) error
	Close() error
}

// ChatHandlers receive inbound pushes. Both run on the channel's read
// goroutine, one at a time, in arrival order.
type ChatHandlers struct {
	OnMessage func(models.InboundMessage)
	// OnClose fires once if the connection drops without Close being called.
	OnClose func(err error)
}

type ChatChannel struct {
	sessionID string
	conn      *wsConn
	h         ChatHandlers
	log       *logrus.Entry

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// DialChat opens /ws/<session_id>. The channel never reconnects.
func (c *Client) DialChat(ctx context.Context, sessionID string, h ChatHandlers) (Chat, error) {
	const op = "Client.DialChat"
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}

	u := c.wsBase + "/ws/" + url.PathEscape(sessionID)
	ws, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "chat channel unavailable", err)
	}

	ch := &ChatChannel{
		sessionID: sessionID,
		conn:      &wsConn{c: ws},
		h:         h,
		log:       c.log.WithFields(logrus.Fields{"session_id": sessionID, "channel": "chat"}),
		done:      make(chan struct{}),
	}
	go ch.readLoop()
	ch.log.Info("chat channel open")
	return ch, nil
}

func (ch *ChatChannel) readLoop() {
	defer close(ch.done)
	for {
		_, data, err := ch.conn.c.ReadMessage()
		if err != nil {
			if ch.closed.Load() {
				return
			}
			ch.log.WithError(err).Warn("chat channel dropped")
			ch.closed.Store(true)
			if ch.h.OnClose != nil {
				ch.h.OnClose(err)
			}
			return
		}
		if ch.closed.Load() {
			continue
		}

		var msg models.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ch.log.WithError(err).Warn("malformed chat frame ignored")
			continue
		}
		if msg.Error != "" {
			ch.log.WithField("remote_error", msg.Error).Warn("interview service reported an error")
			continue
		}
		switch msg.Type {
		case models.MessageTypeResponse, models.MessageTypeClosing:
		default:
			ch.log.WithField("type", msg.Type).Debug("unhandled chat frame ignored")
			continue
		}
		if ch.h.OnMessage != nil {
			ch.h.OnMessage(msg)
		}
	}
}

func (ch *ChatChannel) Send(ctx context.Context, text string) error {
	const op = "ChatChannel.Send"
	if ch.closed.Load() {
		return utils.E(utils.CodeUnavailable, op, "chat channel is closed", utils.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "send canceled", err)
	}

	b, err := json.Marshal(models.OutboundMessage{Type: models.MessageTypeMessage, Content: text})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "encode message", err)
	}
	if err := ch.conn.writeText(b); err != nil {
		return utils.E(utils.CodeUnavailable, op, "send failed", err)
	}
	return nil
}

// Close is idempotent. Pushes that arrive afterwards are dropped.
func (ch *ChatChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		ch.closed.Store(true)
		err = ch.conn.close()
		ch.log.Info("chat channel closed")
	})
	return err
}

// Done is closed when the read loop exits.
func (ch *ChatChannel) Done() <-chan struct{} { return ch.done }
