package channel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// FrameSource yields the latest camera frame as JPEG bytes.
type FrameSource interface {
	Snapshot() ([]byte, error)
}

// VideoChannel streams frames to /ws/video and relays face-presence
// signals back.
type VideoChannel struct {
	conn   *wsConn
	log    *logrus.Entry
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// DialVideo connects and starts the frame pump. onFace may be nil.
func (c *Client) DialVideo(ctx context.Context, frames FrameSource, interval time.Duration, onFace func(present bool)) (*VideoChannel, error) {
	const op = "Client.DialVideo"
	if frames == nil || interval <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "frame source and positive interval required", nil)
	}

	ws, _, err := c.dialer.DialContext(ctx, c.wsBase+"/ws/video", nil)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "video channel unavailable", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	v := &VideoChannel{
		conn:   &wsConn{c: ws},
		log:    c.log.WithField("channel", "video"),
		cancel: cancel,
	}
	v.wg.Add(2)
	go v.pump(pumpCtx, frames, interval)
	go v.readLoop(onFace)
	return v, nil
}

func (v *VideoChannel) pump(ctx context.Context, frames FrameSource, interval time.Duration) {
	defer v.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			jpeg, err := frames.Snapshot()
			if err != nil || len(jpeg) == 0 {
				v.log.WithError(err).Debug("no frame available")
				continue
			}
			if err := v.conn.writeBinary(jpeg); err != nil {
				v.log.WithError(err).Warn("frame send failed; stopping video")
				return
			}
		}
	}
}

func (v *VideoChannel) readLoop(onFace func(bool)) {
	defer v.wg.Done()
	defer v.cancel()
	for {
		kind, data, err := v.conn.c.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage || onFace == nil {
			continue
		}
		switch strings.TrimSpace(string(data)) {
		case models.FaceInFrame:
			onFace(true)
		case models.FaceOutOfFrame:
			onFace(false)
		}
	}
}

// Close stops the pump and waits for both goroutines.
func (v *VideoChannel) Close() error {
	var err error
	v.once.Do(func() {
		v.cancel()
		err = v.conn.close()
		v.wg.Wait()
	})
	return err
}
